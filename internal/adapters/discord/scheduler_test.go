package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"checkin/internal/application"
	"checkin/internal/application/normalize"
	"checkin/internal/domain"
	"checkin/internal/domain/entities"
	"checkin/internal/ports/output"
)

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []*discordgo.MessageEmbed
	edited  []*discordgo.MessageEmbed
	editErr error
}

func (f *fakeMessenger) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, embed)
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", len(f.sent)), ChannelID: channelID}, nil
}

func (f *fakeMessenger) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edited = append(f.edited, embed)
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeMessenger) counts() (sent, edited int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent), len(f.edited)
}

type oneSource struct{ records []entities.Attendee }

func (s *oneSource) Kind() domain.SourceKind { return domain.SourceCSV }
func (s *oneSource) SupportsPolling() bool   { return false }
func (s *oneSource) SupportsPush() bool      { return false }
func (s *oneSource) Close() error            { return nil }
func (s *oneSource) LoadData(ctx context.Context) ([]entities.Attendee, error) {
	return entities.Roster(s.records).Clone(), nil
}
func (s *oneSource) UpdateAttendee(ctx context.Context, id string, u entities.StatusUpdate) error {
	return nil
}

type oneFactory struct{ src *oneSource }

func (f oneFactory) Build(ctx context.Context, cfg domain.SourceConfig) (output.Source, error) {
	return f.src, nil
}

type echoTranslator struct{}

func (echoTranslator) T(locale, key string, data map[string]any) string {
	return fmt.Sprintf("%s %v", key, data)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandlerRun_SendsThenEdits(t *testing.T) {
	src := &oneSource{records: []entities.Attendee{
		{ID: "a", AttendeeName: "Ada", TableNumber: "1", GroupName: "VIP", Status: domain.StatusPending},
		{ID: "b", AttendeeName: "Bob", TableNumber: "2", GroupName: "VIP", Status: domain.StatusPending},
	}}
	mgr := application.NewManager(oneFactory{src}, normalize.New(nil))
	defer mgr.Dispose()
	if err := mgr.Initialize(context.Background(), domain.SourceConfig{Kind: domain.SourceCSV}); err != nil {
		t.Fatal(err)
	}

	out := &fakeMessenger{}
	h := NewHandler(mgr, echoTranslator{}, out, Settings{ChannelID: "123", Locale: "fr", Location: time.UTC})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx, rate.NewLimiter(rate.Inf, 1), time.Hour)
		close(done)
	}()

	waitFor(t, "first message", func() bool { s, _ := out.counts(); return s == 1 })

	if _, err := mgr.UpdateCheckIn(context.Background(), "a", domain.StatusCheckedIn); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "edit", func() bool { _, e := out.counts(); return e >= 1 })

	out.mu.Lock()
	last := out.edited[len(out.edited)-1]
	out.mu.Unlock()
	if !strings.Contains(last.Description, "CheckedIn:1") {
		t.Errorf("edited embed does not reflect the check-in: %q", last.Description)
	}

	out.mu.Lock()
	out.editErr = errors.New("Unknown Message")
	out.mu.Unlock()
	if _, err := mgr.UpdateCheckIn(context.Background(), "b", domain.StatusCheckedIn); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "repost", func() bool { s, _ := out.counts(); return s == 2 })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
