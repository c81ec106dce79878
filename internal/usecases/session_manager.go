package usecases

import (
	"context"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"
	"golang.org/x/sync/singleflight"

	"wppserver/internal/entities"
	"wppserver/internal/infrastructure"
	"wppserver/internal/interfaces"
)

// SessionManagerConfig carries the lifecycle timing knobs. Tests
// shrink these to keep the suite fast.
type SessionManagerConfig struct {
	Retry           RetryPolicy
	ReadyDelay      time.Duration // settle time before a ready session is marked active
	CleanupInterval time.Duration
	CleanupWindow   time.Duration
}

func DefaultSessionManagerConfig() SessionManagerConfig {
	return SessionManagerConfig{
		Retry:           DefaultRetryPolicy(),
		ReadyDelay:      2 * time.Second,
		CleanupInterval: 10 * time.Second,
		CleanupWindow:   30 * time.Second,
	}
}

// DisconnectResult is the normalized outcome of a disconnect request.
// Disconnects always succeed from the registry's point of view.
type DisconnectResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SessionManager orchestrates creation, bounded-retry initialization,
// readiness promotion and teardown of the per-tenant driver sessions.
type SessionManager struct {
	registry    *infrastructure.SessionRegistry
	qrCache     *infrastructure.QRCache
	factory     interfaces.DriverFactory
	hub         *EventHub
	broadcaster interfaces.Broadcaster
	cleanup     func(tenantID string) error
	cfg         SessionManagerConfig
	log         waLog.Logger

	// serializes concurrent activation requests per tenant id
	activations singleflight.Group
}

func NewSessionManager(
	registry *infrastructure.SessionRegistry,
	qrCache *infrastructure.QRCache,
	factory interfaces.DriverFactory,
	hub *EventHub,
	broadcaster interfaces.Broadcaster,
	cleanup func(tenantID string) error,
	cfg SessionManagerConfig,
	log waLog.Logger,
) *SessionManager {
	m := &SessionManager{
		registry:    registry,
		qrCache:     qrCache,
		factory:     factory,
		hub:         hub,
		broadcaster: broadcaster,
		cleanup:     cleanup,
		cfg:         cfg,
		log:         log,
	}
	hub.OnReady = m.scheduleMarkActive
	return m
}

// Activate creates and initializes a session for the tenant. It is
// idempotent: a tenant with a live session is left untouched, and
// concurrent activation requests for the same tenant collapse into a
// single driver creation.
func (m *SessionManager) Activate(ctx context.Context, tenantID string) error {
	if _, ok := m.registry.Get(tenantID); ok {
		return nil
	}

	_, err, _ := m.activations.Do(tenantID, func() (interface{}, error) {
		return nil, m.activate(ctx, tenantID)
	})
	return err
}

func (m *SessionManager) activate(ctx context.Context, tenantID string) error {
	// A concurrent request may have won the race before we entered
	// the singleflight group.
	if _, ok := m.registry.Get(tenantID); ok {
		return nil
	}

	m.log.Infof("Activating client - %s", tenantID)
	m.broadcaster.Emit(tenantID, EventStatus, entities.StatusUpdate{
		Status:  entities.StatusStarting,
		Message: "Iniciando.",
	})

	driver, err := m.factory(tenantID)
	if err != nil {
		return err
	}

	// The watcher must be live before Initialize so no QR challenge
	// emitted during pairing is missed.
	m.hub.Watch(tenantID, driver)

	err = m.cfg.Retry.Run(func() error {
		initErr := driver.Initialize(ctx)
		if initErr != nil {
			m.log.Errorf("Initialize failed for %s: %v", tenantID, initErr)
			m.broadcaster.Emit(tenantID, EventStatus, entities.StatusUpdate{
				Status:  entities.StatusDisconnected,
				Message: "Falha ao iniciar a sessão.",
			})
		}
		return initErr
	})
	if err != nil {
		// Exhausted: surface the failure and leave the tenant
		// unregistered. Destroy closes the event stream, which
		// releases the watcher.
		if destroyErr := driver.Destroy(); destroyErr != nil {
			m.log.Warnf("Destroy after failed activation for %s: %v", tenantID, destroyErr)
		}
		return err
	}

	if !m.registry.Register(tenantID, driver) {
		// Lost a race we should never lose under singleflight; the
		// registered handle wins and this one is torn down.
		m.log.Warnf("Duplicate activation detected for %s, discarding driver", tenantID)
		_ = driver.Destroy()
	}
	return nil
}

// EnsureSession lazily activates a tenant in the background. Used by
// the subscriber gateway: a joining subscriber must never block on
// session initialization.
func (m *SessionManager) EnsureSession(tenantID string) {
	if _, ok := m.registry.Get(tenantID); ok {
		return
	}
	go func() {
		if err := m.Activate(context.Background(), tenantID); err != nil {
			m.log.Errorf("Lazy activation failed for %s: %v", tenantID, err)
		}
	}()
}

// ActivateAll replays sessions for every known tenant. Called on boot.
func (m *SessionManager) ActivateAll(tenants []entities.Tenant) {
	for _, t := range tenants {
		tenantID := t.ID
		m.log.Infof("Initializing client - %s", tenantID)
		go func() {
			if err := m.Activate(context.Background(), tenantID); err != nil {
				m.log.Errorf("Boot activation failed for %s: %v", tenantID, err)
			}
		}()
	}
}

// scheduleMarkActive runs the delayed best-effort activation mark once
// a session reports ready. The timer is not cancellable; if the
// session is torn down before it fires, the mark is skipped silently.
func (m *SessionManager) scheduleMarkActive(tenantID string) {
	time.AfterFunc(m.cfg.ReadyDelay, func() {
		if _, ok := m.registry.Get(tenantID); !ok {
			m.log.Infof("Skipping activation mark for %s: session gone", tenantID)
			return
		}
		m.broadcaster.Emit(tenantID, EventStatus, entities.StatusUpdate{
			Status:  entities.StatusConnected,
			Message: "Client is READY",
		})
	})
}

// Status resolves the tenant's connection state. Never returns an
// error: absence and driver failures both normalize to DISCONNECTED.
func (m *SessionManager) Status(ctx context.Context, tenantID string) entities.TenantStatus {
	driver, ok := m.registry.Get(tenantID)
	if !ok {
		return entities.TenantStatus{
			Status:   entities.StatusDisconnectedKey,
			IsActive: false,
			Message:  "Cliente não encontrado ou desconectado",
		}
	}

	state, err := driver.GetState(ctx)
	if err != nil {
		m.log.Errorf("GetState failed for %s: %v", tenantID, err)
		return entities.TenantStatus{
			Status:   entities.StatusDisconnectedKey,
			IsActive: false,
			Message:  "Cliente provavelmente desconectado",
		}
	}

	return entities.TenantStatus{
		Status:   state,
		IsActive: state == "CONNECTED" || state == "OPENING",
	}
}

// Disconnect tears a session down. Best-effort and non-blocking: the
// protocol logout is fired but not awaited, the session leaves the
// registry immediately, and filesystem cleanup is retried in the
// background for a bounded window.
func (m *SessionManager) Disconnect(tenantID string) DisconnectResult {
	driver, ok := m.registry.Unregister(tenantID)
	if !ok {
		return DisconnectResult{Status: "success", Message: "Cliente já está desconectado"}
	}

	m.qrCache.Invalidate(tenantID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := driver.Logout(ctx); err != nil {
			m.log.Errorf("Logout failed for %s: %v", tenantID, err)
		}
		if err := driver.Destroy(); err != nil {
			m.log.Warnf("Destroy failed for %s: %v", tenantID, err)
		}
	}()

	m.scheduleCleanup(tenantID)

	return DisconnectResult{Status: "success", Message: "Cliente desconectado e limpeza agendada"}
}

// DisconnectAll tears down every live session. Used on shutdown.
func (m *SessionManager) DisconnectAll() {
	for _, tenantID := range m.registry.TenantIDs() {
		m.Disconnect(tenantID)
	}
}

// scheduleCleanup retries session artifact removal on a fixed interval
// until it succeeds or the window elapses. Cleanup failure is logged,
// never escalated.
func (m *SessionManager) scheduleCleanup(tenantID string) {
	if m.cleanup == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.cfg.CleanupInterval)
		defer ticker.Stop()
		deadline := time.NewTimer(m.cfg.CleanupWindow)
		defer deadline.Stop()

		for {
			select {
			case <-ticker.C:
				if err := m.cleanup(tenantID); err != nil {
					m.log.Warnf("Session cleanup attempt failed for %s: %v", tenantID, err)
					continue
				}
				m.log.Infof("Session artifacts removed for %s", tenantID)
				return
			case <-deadline.C:
				m.log.Warnf("Session cleanup abandoned for %s after %s", tenantID, m.cfg.CleanupWindow)
				return
			}
		}
	}()
}
