package extractor

import (
	"strings"
)

// ErrorKind is the user-facing category of an extraction failure.
type ErrorKind string

const (
	KindPrivate           ErrorKind = "private"
	KindAgeRestricted     ErrorKind = "age_restricted"
	KindLive              ErrorKind = "live"
	KindFormatUnavailable ErrorKind = "format_unavailable"
	KindRegionBlocked     ErrorKind = "region_blocked"
	KindUnavailable       ErrorKind = "unavailable"
	KindGeneric           ErrorKind = "generic"
)

type rule struct {
	kind    ErrorKind
	needles []string
}

// rules are ordered most specific first; the first match wins.
var rules = []rule{
	{KindPrivate, []string{"private video"}},
	{KindAgeRestricted, []string{"sign in to confirm your age", "age-restricted", "age restricted"}},
	{KindLive, []string{"this live event", "live event will begin", "is live", "premieres in"}},
	{KindFormatUnavailable, []string{"no video formats found", "requested format is not available"}},
	{KindRegionBlocked, []string{"available in your country", "blocked", "region"}},
	{KindUnavailable, []string{"video unavailable", "has been removed"}},
}

var messages = map[ErrorKind]string{
	KindPrivate:           "This is a private video and cannot be downloaded.",
	KindAgeRestricted:     "This video is age-restricted. Try a different video.",
	KindLive:              "Live streams cannot be downloaded. Please try again after the stream ends.",
	KindFormatUnavailable: "This video format is not available. Try a different video or check if it's age-restricted.",
	KindRegionBlocked:     "This video is blocked in the server's region. Try a popular music video or educational content.",
	KindUnavailable:       "This video is unavailable or has been removed.",
}

// Classify maps raw tool output onto an ErrorKind by case-insensitive substring match.
func Classify(text string) ErrorKind {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(lower, needle) {
				return r.kind
			}
		}
	}
	return KindGeneric
}

// Message returns the user-facing text for kind. Generic failures embed raw.
func Message(kind ErrorKind, raw string) string {
	if msg, ok := messages[kind]; ok {
		return msg
	}
	return "Unable to access video: " + raw
}

// Error is a classified extraction failure.
type Error struct {
	Kind    ErrorKind
	Profile string
	Err     error
}

// NewError classifies err.
func NewError(profile string, err error) *Error {
	return &Error{Kind: Classify(err.Error()), Profile: profile, Err: err}
}

func (e *Error) Error() string {
	if e.Profile == "" {
		return e.Err.Error()
	}
	return "profile " + e.Profile + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to clients.
func (e *Error) UserMessage() string {
	return Message(e.Kind, e.Err.Error())
}
