package bypass

import (
	"bytes"
	"net/http"
	"slices"
	"strings"
)

// Response is the part of an HTTP response the detectors inspect.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Detector reports whether a response is a bot-protection challenge or block
// page rather than the requested content, and which vendor served it.
type Detector func(res *Response) (detected bool, source string)

// signature describes how one vendor's block pages look. The server, header
// and body checks only apply when the status is one of statuses; interstitial
// is consulted for every status.
type signature struct {
	vendor   string
	statuses []int
	// server is matched against the lower-cased Server header.
	server string
	// headers fire when any of them is present.
	headers []string
	// markers fire when every string of any one group is in the body.
	markers      [][]string
	interstitial func(res *Response) bool
}

var (
	cloudflare = signature{
		vendor:   "Cloudflare",
		statuses: []int{http.StatusForbidden, http.StatusServiceUnavailable},
		server:   "cloudflare",
		markers: [][]string{
			{"cf-browser-verification"},
			{"cloudflare-nginx"},
			{"cf-turnstile"},
			{"Attention Required! | Cloudflare"},
		},
		// The managed "Just a moment..." page is served with a 200.
		interstitial: func(res *Response) bool {
			return header(res.Headers, "Cf-Mitigated") == "challenge" ||
				bodyHasAll(res.Body, "/cdn-cgi/challenge-platform/", "Just a moment...")
		},
	}
	akamai = signature{
		vendor:   "Akamai",
		statuses: []int{http.StatusForbidden},
		server:   "akamai",
		markers:  [][]string{{"Reference #", "Access Denied"}},
	}
	dataDome = signature{
		vendor:   "DataDome",
		statuses: []int{http.StatusForbidden},
		server:   "datadome",
		headers:  []string{"X-DataDome", "X-DataDome-Response"},
		markers:  [][]string{{"geo.captcha-delivery.com"}, {"datadome"}},
	}
	perimeterX = signature{
		vendor:   "PerimeterX",
		statuses: []int{http.StatusForbidden},
		headers:  []string{"X-Px-Captcha"},
		markers:  [][]string{{"client.perimeterx.net"}, {"px-captcha"}, {"_pxBlock"}},
	}
)

// DefaultDetectors returns the Cloudflare, Akamai, DataDome and PerimeterX
// detectors, in that order.
func DefaultDetectors() []Detector {
	return []Detector{
		cloudflare.detect,
		akamai.detect,
		dataDome.detect,
		perimeterX.detect,
	}
}

// Analyze runs res through detectors in order and returns the first hit.
func Analyze(res *Response, detectors []Detector) (bool, string) {
	if res == nil {
		return false, ""
	}
	for _, d := range detectors {
		if detected, source := d(res); detected {
			return true, source
		}
	}
	return false, ""
}

func (s signature) detect(res *Response) (bool, string) {
	if s.matches(res) {
		return true, s.vendor
	}
	return false, ""
}

func (s signature) matches(res *Response) bool {
	if s.interstitial != nil && s.interstitial(res) {
		return true
	}
	if !slices.Contains(s.statuses, res.StatusCode) {
		return false
	}
	if s.server != "" && strings.Contains(strings.ToLower(header(res.Headers, "Server")), s.server) {
		return true
	}
	for _, h := range s.headers {
		if header(res.Headers, h) != "" {
			return true
		}
	}
	for _, group := range s.markers {
		if bodyHasAll(res.Body, group...) {
			return true
		}
	}
	return false
}

func bodyHasAll(body []byte, markers ...string) bool {
	for _, m := range markers {
		if !bytes.Contains(body, []byte(m)) {
			return false
		}
	}
	return len(markers) > 0
}

// header is Header.Get that also tolerates non-canonical keys in maps built
// by hand.
func header(h http.Header, key string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	for k, vals := range h {
		if strings.EqualFold(k, key) && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}
