// Package resolver implements the pure, single-input classification state
// machine that turns a channel identifier (a direct ID, a legacy /user/
// URL, a /@handle URL, a /c/ custom URL, or a raw handle) into a resolved
// channel ID, a deferral to search fallback, or a failure. Rules are tried
// in a fixed order and each input produces at most one API call: a failed
// /user/ lookup is a terminal failure rather than falling through to later
// rules, /c/ URLs always defer to search fallback, and a raw handle must
// pass an explicit sanity check (no whitespace, at most 70 characters)
// before a lookup is attempted.
package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/example/ytresolver/internal/ytapi"
)

var (
	channelIDPattern = regexp.MustCompile(`UC[A-Za-z0-9_-]{22}`)
	userURLPattern   = regexp.MustCompile(`/user/([A-Za-z0-9_.\-]+)`)
	handleURLPattern = regexp.MustCompile(`/@([A-Za-z0-9_.\-]+)`)
	customURLPattern = regexp.MustCompile(`/c/([A-Za-z0-9_.\-]+)`)
	rawHandlePattern = regexp.MustCompile(`^@?[A-Za-z0-9_.\-]+$`)
)

const maxRawHandleLength = 70

// Outcome is the resolver's terminal classification for one input.
type Outcome string

const (
	Resolved            Outcome = "RESOLVED"
	NeedsSearchFallback Outcome = "NEEDS_SEARCH_FALLBACK"
	Failed              Outcome = "FAILED"
)

// Result carries the outcome plus its payload: a channel ID on Resolved, or
// a human-readable reason on NeedsSearchFallback/Failed.
type Result struct {
	Outcome   Outcome
	ChannelID string
	Reason    string
}

func resolved(channelID string) Result   { return Result{Outcome: Resolved, ChannelID: channelID} }
func failed(reason string) Result        { return Result{Outcome: Failed, Reason: reason} }
func needsFallback(reason string) Result { return Result{Outcome: NeedsSearchFallback, Reason: reason} }

// channelsLister is the one API facade method the resolver needs; accepting
// this narrow interface instead of *ytapi.Client keeps the resolver's tests
// independent of transport/retry wiring.
type channelsLister interface {
	ChannelsList(ctx context.Context, tenantID string, params ytapi.Params) (ytapi.Response, error)
}

// Resolver classifies one channel identifier using the ordered rules above.
// Each input produces at most one API call.
type Resolver struct {
	api channelsLister
}

func New(api channelsLister) *Resolver {
	return &Resolver{api: api}
}

// Resolve runs the six-rule cascade against input for the given tenant
// (used to key throttling/retry in the underlying API facade).
func (r *Resolver) Resolve(ctx context.Context, tenantID, input string) Result {
	input = strings.TrimSpace(input)

	// 1. Direct channel ID: no API call.
	if match := channelIDPattern.FindString(input); match != "" {
		return resolved(match)
	}

	// 2. Legacy /user/<name> URL.
	if m := userURLPattern.FindStringSubmatch(input); m != nil {
		return r.resolveByUsername(ctx, tenantID, m[1])
	}

	// 3. Handle URL /@<handle>.
	if m := handleURLPattern.FindStringSubmatch(input); m != nil {
		return r.resolveByHandle(ctx, tenantID, m[1])
	}

	// 4. Custom /c/<name> URL: always deferred to search fallback.
	if m := customURLPattern.FindStringSubmatch(input); m != nil {
		return needsFallback(fmt.Sprintf("custom URL /c/%s requires search fallback", m[1]))
	}

	// 5. Raw handle.
	if rawHandlePattern.MatchString(input) && len(input) <= maxRawHandleLength && !strings.ContainsAny(input, " \t\n") {
		return r.resolveByHandle(ctx, tenantID, strings.TrimPrefix(input, "@"))
	}

	// 6. Anything else.
	return failed("unrecognized")
}

func (r *Resolver) resolveByUsername(ctx context.Context, tenantID, username string) Result {
	resp, err := r.api.ChannelsList(ctx, tenantID, ytapi.Params{
		"part":        "id",
		"forUsername": username,
	})
	if err != nil {
		return failed(err.Error())
	}
	items := resp.Items()
	if len(items) == 0 {
		return failed("user not found")
	}
	id, ok := itemID(items[0])
	if !ok {
		return failed("user not found")
	}
	return resolved(id)
}

func (r *Resolver) resolveByHandle(ctx context.Context, tenantID, handle string) Result {
	resp, err := r.api.ChannelsList(ctx, tenantID, ytapi.Params{
		"part":      "id",
		"forHandle": handle,
	})
	if err != nil {
		return failed(err.Error())
	}
	items := resp.Items()
	if len(items) == 0 {
		return failed("handle not found")
	}
	id, ok := itemID(items[0])
	if !ok {
		return failed("handle not found")
	}
	return resolved(id)
}

func itemID(item interface{}) (string, bool) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return "", false
	}
	id, ok := m["id"].(string)
	return id, ok
}
