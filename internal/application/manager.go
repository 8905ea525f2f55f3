package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"checkin/internal/application/normalize"
	"checkin/internal/domain"
	"checkin/internal/domain/entities"
	"checkin/internal/ports/input"
	"checkin/internal/ports/output"
)

var _ input.RosterUseCase = (*Manager)(nil)

// Manager states.
const (
	StateUninitialized = "uninitialized"
	StateLoaded        = "loaded"
	StateSwitching     = "switching"
	StateError         = "error"
)

// Manager owns the single active source, the in-memory roster, the polling
// loop and the push subscription.
//
// Lock order is opMu → loadMu → mu. pubMu is only taken once mu is released,
// so subscribers may read the Manager; they must not call mutating methods
// synchronously.
type Manager struct {
	factory    output.SourceFactory
	normalizer *normalize.Normalizer
	dispatcher *Dispatcher

	// opMu keeps caller-initiated operations in invocation order.
	opMu sync.Mutex
	// loadMu prevents overlapping LoadData calls; poll ticks only TryLock it.
	loadMu sync.Mutex
	pubMu  sync.Mutex
	// lastPub is the sequence of the last delivered snapshot, guarded by pubMu.
	lastPub uint64

	mu         sync.RWMutex
	pubSeq     uint64
	cfg        domain.SourceConfig
	source     output.Source
	generation uint64
	roster     entities.Roster
	state      string
	lastErr    error
	dropped    int
	bg         *background
}

type background struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (b *background) stop() {
	if b == nil {
		return
	}
	b.cancel()
	b.wg.Wait()
}

func NewManager(factory output.SourceFactory, normalizer *normalize.Normalizer) *Manager {
	return &Manager{
		factory:    factory,
		normalizer: normalizer,
		dispatcher: NewDispatcher(),
		roster:     entities.Roster{},
		state:      StateUninitialized,
	}
}

// Initialize builds the source for cfg, loads it and publishes the roster.
// Calling it again replaces the current source.
func (m *Manager) Initialize(ctx context.Context, cfg domain.SourceConfig) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	gen, old, bg := m.detachLocked(cfg)
	m.roster = entities.Roster{}
	m.state = StateUninitialized
	m.lastErr = nil
	m.mu.Unlock()
	m.teardown(old, bg)

	return m.attach(ctx, gen, cfg)
}

// SwitchSource discards the roster and loads the new source. Without
// confirmation it does nothing and returns domain.ErrSwitchNotConfirmed.
// No check-in state is carried from one backend to the other.
func (m *Manager) SwitchSource(ctx context.Context, req input.SwitchRequest) error {
	if !req.Confirmed {
		return domain.ErrSwitchNotConfirmed
	}
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	from := m.cfg.Kind
	gen, old, bg := m.detachLocked(req.Config)
	m.roster = entities.Roster{}
	m.state = StateSwitching
	m.lastErr = nil
	m.publishLocked()

	log.Printf("🔁 Changement de source: %s → %s", from, req.Config.Kind)
	m.teardown(old, bg)

	return m.attach(ctx, gen, req.Config)
}

// detachLocked advances the generation and forgets the current source.
// m.mu must be held.
func (m *Manager) detachLocked(cfg domain.SourceConfig) (uint64, output.Source, *background) {
	m.generation++
	old, bg := m.source, m.bg
	m.source, m.bg = nil, nil
	m.cfg = cfg
	return m.generation, old, bg
}

func (m *Manager) teardown(old output.Source, bg *background) {
	bg.stop()
	if old == nil {
		return
	}
	if err := old.Close(); err != nil {
		log.Printf("⚠️ Fermeture de la source %s: %v", old.Kind(), err)
	}
}

func (m *Manager) attach(ctx context.Context, gen uint64, cfg domain.SourceConfig) error {
	src, err := m.factory.Build(ctx, cfg)
	if err != nil {
		m.mu.Lock()
		if gen == m.generation {
			m.lastErr = err
			m.state = StateError
			m.roster = entities.Roster{}
			m.publishLocked()
		} else {
			m.mu.Unlock()
		}
		log.Printf("❌ Source %s inutilisable: %v", cfg.Kind, err)
		return err
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		_ = src.Close()
		return nil
	}
	m.source = src
	m.mu.Unlock()

	m.loadMu.Lock()
	res := load(ctx, src)
	m.loadMu.Unlock()
	loadErr := m.commit(gen, res)

	m.startBackground(gen, src, cfg)
	return loadErr
}

func (m *Manager) startBackground(gen uint64, src output.Source, cfg domain.SourceConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	bg := &background{cancel: cancel}

	if src.SupportsPolling() {
		bg.wg.Add(1)
		go func() {
			defer bg.wg.Done()
			m.pollLoop(ctx, gen, src, cfg.Interval())
		}()
	}
	if ps, ok := src.(output.PushSource); ok && src.SupportsPush() {
		bg.wg.Add(1)
		go func() {
			defer bg.wg.Done()
			m.pushLoop(ctx, gen, ps.Changes())
		}()
	}
	m.bg = bg
}

func (m *Manager) pollLoop(ctx context.Context, gen uint64, src output.Source, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx, gen, src)
		}
	}
}

// pollOnce reloads src unless a load is already running, in which case the
// tick is dropped.
func (m *Manager) pollOnce(ctx context.Context, gen uint64, src output.Source) bool {
	if !m.loadMu.TryLock() {
		log.Printf("⏭️ Rafraîchissement périodique ignoré: chargement déjà en cours")
		return false
	}
	res := load(ctx, src)
	m.loadMu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	_ = m.commit(gen, res)
	return true
}

func (m *Manager) pushLoop(ctx context.Context, gen uint64, changes <-chan output.PushDelta) {
	for {
		select {
		case <-ctx.Done():
			return
		case delta, ok := <-changes:
			if !ok {
				return
			}
			m.applyPushDelta(gen, delta)
		}
	}
}

// Refresh reloads the active source and replaces the roster wholesale.
func (m *Manager) Refresh(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.reload(ctx)
}

// reload is Refresh with opMu already held.
func (m *Manager) reload(ctx context.Context) error {
	m.mu.RLock()
	src, gen := m.source, m.generation
	m.mu.RUnlock()
	if src == nil {
		return m.notInitialized()
	}

	m.loadMu.Lock()
	res := load(ctx, src)
	m.loadMu.Unlock()
	return m.commit(gen, res)
}

type loadResult struct {
	records []entities.Attendee
	dropped int
	err     error
}

// load reads one snapshot from src. loadMu must be held so the drop count
// belongs to this load.
func load(ctx context.Context, src output.Source) loadResult {
	records, err := src.LoadData(ctx)
	res := loadResult{records: records, err: err}
	if d, ok := src.(output.DropReporter); ok && err == nil {
		res.dropped = d.Dropped()
	}
	return res
}

// commit installs the result of a load started at generation gen. Results
// from an older generation are ignored.
func (m *Manager) commit(gen uint64, res loadResult) error {
	err := res.err
	m.mu.Lock()
	if gen != m.generation {
		current := m.generation
		m.mu.Unlock()
		log.Printf("⚠️ Chargement périmé ignoré (génération %d, courante %d)", gen, current)
		return nil
	}

	if err != nil {
		m.lastErr = err
		switch {
		case errors.Is(err, domain.ErrSourceParse):
			log.Printf("⚠️ Données illisibles, liste vidée: %v", err)
			m.roster = entities.Roster{}
			m.dropped = 0
			m.state = StateLoaded
		case m.state != StateLoaded:
			log.Printf("❌ Chargement initial impossible (%s): %v", retryHint(err), err)
			m.roster = entities.Roster{}
			m.dropped = 0
			m.state = StateError
		default:
			m.mu.Unlock()
			log.Printf("⚠️ Rafraîchissement impossible, liste conservée (%s): %v", retryHint(err), err)
			return err
		}
		m.publishLocked()
		return err
	}

	m.roster = dedupe(res.records)
	m.dropped = res.dropped
	m.state = StateLoaded
	m.lastErr = nil
	m.publishLocked()
	return nil
}

func retryHint(err error) string {
	if domain.Retryable(err) {
		return "nouvel essai au prochain rafraîchissement"
	}
	return "correction de la configuration requise"
}

func dedupe(records []entities.Attendee) entities.Roster {
	out := make(entities.Roster, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, a := range records {
		if _, dup := seen[a.ID]; dup {
			log.Printf("⚠️ Identifiant en double ignoré: %s (ligne %d)", a.ID, a.RowIndex)
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// publishLocked snapshots the roster and publishes it. It must be called with
// m.mu held and releases it. A snapshot overtaken by a newer one before
// delivery is skipped, so subscribers never see the roster go back in time.
func (m *Manager) publishLocked() {
	m.pubSeq++
	seq := m.pubSeq
	snapshot := m.roster.Clone()
	m.mu.Unlock()

	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	if seq < m.lastPub {
		return
	}
	m.lastPub = seq
	m.dispatcher.Publish(snapshot)
}

// UpdateCheckIn flips the record immediately, publishes, then persists. When
// the source rejects the write the record is restored and republished.
func (m *Manager) UpdateCheckIn(ctx context.Context, id string, status domain.Status) (entities.Attendee, error) {
	if status != domain.StatusPending && status != domain.StatusCheckedIn {
		return entities.Attendee{}, domain.ErrInvalidStatus
	}
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.source == nil {
		m.mu.Unlock()
		return entities.Attendee{}, m.notInitialized()
	}
	idx := m.roster.IndexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return entities.Attendee{}, domain.ErrAttendeeNotFound
	}
	previous := m.roster[idx]
	if previous.Status == status {
		m.mu.Unlock()
		return previous, nil
	}
	optimistic := previous.WithStatus(status, nil)
	m.roster[idx] = optimistic
	src, gen := m.source, m.generation
	m.publishLocked()

	err := src.UpdateAttendee(ctx, id, entities.StatusUpdate{
		Status:      optimistic.Status,
		CheckedInAt: optimistic.CheckedInAt,
	})
	if err == nil {
		return optimistic, nil
	}
	if !errors.Is(err, domain.ErrUpdateRejected) {
		err = fmt.Errorf("%w: %w", domain.ErrUpdateRejected, err)
	}
	log.Printf("❌ Check-in de %s annulé: %v", id, err)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return previous, err
	}
	// A poll or push may have replaced the record meanwhile; only undo our own write.
	if i := m.roster.IndexOf(id); i >= 0 && m.roster[i].Equal(optimistic) {
		m.roster[i] = previous
		m.publishLocked()
	} else {
		m.mu.Unlock()
	}
	return previous, err
}

// ImportFile hands an operator-provided export to the active source and
// reloads it. It is the manual path left when a source cannot fetch its data.
func (m *Manager) ImportFile(ctx context.Context, data []byte) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.RLock()
	src := m.source
	m.mu.RUnlock()
	if src == nil {
		return m.notInitialized()
	}
	imp, ok := src.(output.FileImporter)
	if !ok {
		return fmt.Errorf("source %s: import de fichier non pris en charge: %w", src.Kind(), domain.ErrSourceMisconfigured)
	}
	imp.Import(data)
	log.Printf("📥 Fichier importé pour la source %s (%d octets)", src.Kind(), len(data))
	return m.reload(ctx)
}

// ApplyPushDelta merges one change notification into the roster.
func (m *Manager) ApplyPushDelta(delta output.PushDelta) bool {
	m.mu.RLock()
	gen := m.generation
	m.mu.RUnlock()
	return m.applyPushDelta(gen, delta)
}

// applyPushDelta only handles updates: inserts and deletes need a full reload.
// Unknown ids belong to a roster state not loaded here and are ignored.
func (m *Manager) applyPushDelta(gen uint64, delta output.PushDelta) bool {
	if !strings.EqualFold(delta.EventType, output.EventUpdate) {
		log.Printf("ℹ️ Notification %s ignorée (rechargement nécessaire)", delta.EventType)
		return false
	}
	var row map[string]any
	if err := json.Unmarshal(delta.New, &row); err != nil {
		log.Printf("⚠️ Notification illisible: %v", err)
		return false
	}
	id := normalize.KeyOf(row)
	if id == "" {
		var old map[string]any
		if err := json.Unmarshal(delta.Old, &old); err == nil {
			id = normalize.KeyOf(old)
		}
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return false
	}
	idx := m.roster.IndexOf(id)
	if id == "" || idx < 0 {
		m.mu.Unlock()
		return false
	}
	m.roster[idx] = m.normalizer.Patch(m.roster[idx], row)
	m.publishLocked()
	return true
}

// Dispose stops background work and closes the active source.
func (m *Manager) Dispose() {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	_, old, bg := m.detachLocked(m.cfg)
	m.state = StateUninitialized
	m.mu.Unlock()
	m.teardown(old, bg)
}

func (m *Manager) notInitialized() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastErr != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotInitialized, m.lastErr)
	}
	return domain.ErrNotInitialized
}

func (m *Manager) Subscribe(fn func(entities.Roster)) func() {
	return m.dispatcher.Subscribe(fn)
}

func (m *Manager) CurrentRoster() entities.Roster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roster.Clone()
}

func (m *Manager) ActiveSourceType() domain.SourceKind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Kind
}

func (m *Manager) Stats() entities.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return entities.ComputeStats(m.roster)
}

func (m *Manager) Status() input.SourceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return input.SourceStatus{
		Kind:      m.cfg.Kind,
		State:     m.state,
		ErrorCode: domain.Code(m.lastErr),
		Retryable: m.lastErr != nil && domain.Retryable(m.lastErr),
		Dropped:   m.dropped,
	}
}

// LastError is the error of the most recent failed load, nil after a success.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}
