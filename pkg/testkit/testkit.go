// Package testkit holds small helpers shared by tests.
package testkit

import "net/http"

// RoundTripFunc adapts a function into an http.RoundTripper, letting tests
// intercept outgoing requests without a live server:
//
//	httpclient.DefaultClient.Transport = testkit.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
//	    return &http.Response{StatusCode: 200, Body: ...}, nil
//	})
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
