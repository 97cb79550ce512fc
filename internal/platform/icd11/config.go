// Package icd11 is a client for the WHO ICD-11 search API (v2). It handles
// the OAuth2 client-credentials token lifecycle, retries, outbound rate
// limiting and normalisation of the API's loosely typed entity payloads.
package icd11

import (
	"fmt"
	"time"
)

// Defaults for the public WHO endpoints.
const (
	DefaultTokenURL          = "https://icdaccessmanagement.who.int/connect/token"
	DefaultBaseURL           = "https://id.who.int/icd"
	DefaultRelease           = "2024-01"
	DefaultScope             = "icdapi_access"
	DefaultAPIVersion        = "v2"
	DefaultTimeout           = 15 * time.Second
	DefaultRetryAttempts     = 3
	DefaultRetryDelay        = time.Second
	DefaultRequestsPerMinute = 60
	DefaultRequestDelay      = 200 * time.Millisecond

	grantType = "client_credentials"
)

// SystemURI identifies ICD-11 MMS codings in FHIR resources.
const SystemURI = "http://id.who.int/icd/release/11/mms"

// TMChapter is the ICD-11 chapter holding Traditional Medicine conditions.
const TMChapter = "26"

// Config configures a Client.
type Config struct {
	ClientID          string
	ClientSecret      string
	TokenURL          string
	BaseURL           string
	Release           string
	Scope             string
	APIVersion        string
	Timeout           time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	RequestsPerMinute int
	RequestDelay      time.Duration
}

// DefaultConfig returns a Config pointing at the public WHO API without
// credentials.
func DefaultConfig() Config {
	return Config{
		TokenURL:          DefaultTokenURL,
		BaseURL:           DefaultBaseURL,
		Release:           DefaultRelease,
		Scope:             DefaultScope,
		APIVersion:        DefaultAPIVersion,
		Timeout:           DefaultTimeout,
		RetryAttempts:     DefaultRetryAttempts,
		RetryDelay:        DefaultRetryDelay,
		RequestsPerMinute: DefaultRequestsPerMinute,
		RequestDelay:      DefaultRequestDelay,
	}
}

// HasCredentials reports whether a client id and secret are set.
func (c Config) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// SearchPath is the MMS search endpoint relative to BaseURL.
func (c Config) SearchPath() string {
	return fmt.Sprintf("/release/11/%s/mms/search", c.Release)
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TokenURL == "" {
		c.TokenURL = d.TokenURL
	}
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Release == "" {
		c.Release = d.Release
	}
	if c.Scope == "" {
		c.Scope = d.Scope
	}
	if c.APIVersion == "" {
		c.APIVersion = d.APIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 1
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}
