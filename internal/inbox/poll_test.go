package inbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// recordSleep replaces the poller's sleep and records requested durations.
func recordSleep(p *Poller) *[]time.Duration {
	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return &slept
}

func inboxHandler(t *testing.T, bodies map[string]string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path == "/messages" {
			w.Write([]byte(`{"hydra:member":[`))
			first := true
			for _, id := range []string{"m1", "m2"} {
				if _, ok := bodies[id]; !ok {
					continue
				}
				if !first {
					w.Write([]byte(","))
				}
				fmt.Fprintf(w, `{"id":%q}`, id)
				first = false
			}
			w.Write([]byte(`]}`))
			return
		}
		id := r.URL.Path[len("/messages/"):]
		fmt.Fprintf(w, `{"id":%q,"text":%q}`, id, bodies[id])
	})
}

func TestPollCodeBeatsLink(t *testing.T) {
	api := testAPI(t, inboxHandler(t, map[string]string{
		"m1": "Welcome! Your code is 482913. Or confirm at https://svc.test/confirm?t=abc",
	}))

	p := NewPoller(api, nil)
	slept := recordSleep(p)

	res, err := p.Poll(context.Background(), "tok", PollOptions{Attempts: 2, Interval: 0})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Code != "482913" || res.Link != "" {
		t.Errorf("got %+v, want code 482913", res)
	}
	if len(*slept) != 0 {
		t.Errorf("slept before returning a match: %v", *slept)
	}
}

func TestPollLink(t *testing.T) {
	api := testAPI(t, inboxHandler(t, map[string]string{
		"m1": "nothing here",
		"m2": "Click https://svc.test/verify/abc to finish",
	}))

	res, err := NewPoller(api, nil).Poll(context.Background(), "tok", DefaultPollOptions())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Link != "https://svc.test/verify/abc" || res.Code != "" {
		t.Errorf("got %+v", res)
	}
}

func TestPollNothingFound(t *testing.T) {
	var lists atomic.Int32
	api := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lists.Add(1)
		w.Write([]byte(`{"hydra:member":[]}`))
	}))

	p := NewPoller(api, nil)
	slept := recordSleep(p)

	res, err := p.Poll(context.Background(), "tok", PollOptions{Attempts: 3, Interval: 2 * time.Second})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Found() {
		t.Errorf("expected nothing, got %+v", res)
	}
	if lists.Load() != 3 {
		t.Errorf("list calls: got %d, want 3", lists.Load())
	}
	if len(*slept) != 2 {
		t.Fatalf("sleeps: got %v, want 2 between 3 attempts", *slept)
	}
	for _, d := range *slept {
		if d != 2*time.Second {
			t.Errorf("sleep: got %v", d)
		}
	}
}

func TestPollNetworkErrorsAreNotFatal(t *testing.T) {
	var lists atomic.Int32
	api := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/messages" {
			if lists.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`[{"id":"m1"}]`))
			return
		}
		w.Write([]byte(`{"id":"m1","text":"code 111222"}`))
	}))

	p := NewPoller(api, nil)
	recordSleep(p)

	res, err := p.Poll(context.Background(), "tok", PollOptions{Attempts: 2})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Code != "111222" {
		t.Errorf("got %+v", res)
	}
}

func TestPollInvalidPatternMakesNoRequests(t *testing.T) {
	var calls atomic.Int32
	api := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := NewPoller(api, nil).Poll(context.Background(), "tok", PollOptions{CodePattern: `(\d`, Attempts: 1})
	if err == nil {
		t.Fatal("expected pattern error")
	}
	if calls.Load() != 0 {
		t.Errorf("made %d requests", calls.Load())
	}
}

func TestPollAutoPattern(t *testing.T) {
	api := testAPI(t, inboxHandler(t, map[string]string{
		"m1": "Order 2024-001 shipped. Your verification code is 7731",
	}))

	res, err := NewPoller(api, nil).Poll(context.Background(), "tok", PollOptions{CodePattern: "auto", Attempts: 1})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Code != "7731" {
		t.Errorf("got %+v", res)
	}
}

func TestPollCancelledDuringSleep(t *testing.T) {
	api := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(api, nil)
	p.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := p.Poll(ctx, "tok", PollOptions{Attempts: 3, Interval: time.Hour})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSleepCtx(t *testing.T) {
	if err := sleepCtx(context.Background(), 0); err != nil {
		t.Errorf("zero sleep: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled sleep: got %v", err)
	}
}
