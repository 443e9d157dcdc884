package connect

import (
	"context"
	"errors"
	"testing"

	"tradejournal/internal/broker/snaptrade"
	apperrors "tradejournal/internal/errors"
	"tradejournal/internal/models"
)

type fakeAggregator struct {
	registerCalls []string
	registerFn    func(userID string) (*snaptrade.Credential, error)
	linkFn        func(userID, userSecret, brokerID, redirectURI string) (*snaptrade.ConnectionLink, error)
	connections   []snaptrade.Connection
	listErr       error
}

func (f *fakeAggregator) RegisterUser(_ context.Context, userID string) (*snaptrade.Credential, error) {
	f.registerCalls = append(f.registerCalls, userID)
	if f.registerFn != nil {
		return f.registerFn(userID)
	}
	return &snaptrade.Credential{UserID: userID, UserSecret: "secret-" + userID}, nil
}

func (f *fakeAggregator) CreateConnectionLink(_ context.Context, userID, userSecret, brokerID, redirectURI string) (*snaptrade.ConnectionLink, error) {
	if f.linkFn != nil {
		return f.linkFn(userID, userSecret, brokerID, redirectURI)
	}
	return &snaptrade.ConnectionLink{RedirectURI: "https://portal/x", SessionID: "sess-1"}, nil
}

func (f *fakeAggregator) ListConnections(_ context.Context, _, _ string) ([]snaptrade.Connection, error) {
	return f.connections, f.listErr
}

// fakeCredentials mirrors the repository contract: Create refuses to
// overwrite and Delete is the only way to clear a credential.
type fakeCredentials struct {
	byUser map[int64]*models.BrokerCredential
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{byUser: make(map[int64]*models.BrokerCredential)}
}

func (f *fakeCredentials) GetByUserID(userID int64) (*models.BrokerCredential, error) {
	return f.byUser[userID], nil
}

func (f *fakeCredentials) Create(cred *models.BrokerCredential) (int64, error) {
	if _, exists := f.byUser[cred.UserID]; exists {
		return 0, apperrors.Conflict("broker credential already exists for user")
	}
	f.byUser[cred.UserID] = cred
	return 1, nil
}

func (f *fakeCredentials) Delete(userID int64) error {
	if _, exists := f.byUser[userID]; !exists {
		return apperrors.NotFound("broker credential")
	}
	delete(f.byUser, userID)
	return nil
}

// fakeSessions mirrors the repository contract: MarkCompleted only
// transitions sessions that are still pending.
type fakeSessions struct {
	byID map[string]*models.ConnectionSession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: make(map[string]*models.ConnectionSession)}
}

func (f *fakeSessions) Create(sess *models.ConnectionSession) error {
	f.byID[sess.ID] = sess
	return nil
}

func (f *fakeSessions) GetByID(id string) (*models.ConnectionSession, error) {
	return f.byID[id], nil
}

func (f *fakeSessions) GetLatestByUserID(userID int64) (*models.ConnectionSession, error) {
	for _, sess := range f.byID {
		if sess.UserID == userID {
			return sess, nil
		}
	}
	return nil, nil
}

func (f *fakeSessions) MarkCompleted(id, authorizationID string) error {
	sess := f.byID[id]
	if sess == nil || !sess.IsPending() {
		return apperrors.SessionState("invalid or expired session")
	}
	sess.Status = models.SessionCompleted
	sess.AuthorizationID = authorizationID
	return nil
}

func (f *fakeSessions) MarkError(id, message string) error {
	sess := f.byID[id]
	if sess != nil && sess.IsPending() {
		sess.Status = models.SessionError
		sess.ErrorMessage = message
	}
	return nil
}

type syncRecorder struct {
	calls []int64
	err   error
}

func (s *syncRecorder) fn(_ context.Context, userID int64) error {
	s.calls = append(s.calls, userID)
	return s.err
}

func newTestController(agg *fakeAggregator) (*Controller, *fakeCredentials, *fakeSessions, *syncRecorder) {
	creds := newFakeCredentials()
	sessions := newFakeSessions()
	sync := &syncRecorder{}
	ctrl := NewController(agg, creds, sessions, "https://app.example.com/callback", sync.fn)
	return ctrl, creds, sessions, sync
}

func TestController_Start_RegistersAndCreatesPendingSession(t *testing.T) {
	agg := &fakeAggregator{
		registerFn: func(userID string) (*snaptrade.Credential, error) {
			return &snaptrade.Credential{UserID: "u1", UserSecret: "s1"}, nil
		},
	}
	ctrl, creds, sessions, _ := newTestController(agg)

	sess, err := ctrl.Start(context.Background(), 1, "questrade")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cred := creds.byUser[1]
	if cred == nil || cred.ExternalUserID != "u1" || cred.ExternalSecret != "s1" {
		t.Errorf("stored credential = %+v, want {u1 s1}", cred)
	}
	if sess.RedirectURI != "https://portal/x" {
		t.Errorf("RedirectURI = %q, want https://portal/x", sess.RedirectURI)
	}
	if !sess.IsPending() {
		t.Errorf("session status = %q, want pending", sess.Status)
	}
	if sessions.byID[sess.ID] == nil {
		t.Error("session was not persisted")
	}
}

func TestController_Start_KeepsExistingCredential(t *testing.T) {
	agg := &fakeAggregator{}
	ctrl, creds, _, _ := newTestController(agg)
	creds.byUser[1] = &models.BrokerCredential{UserID: 1, ExternalUserID: "u1", ExternalSecret: "old-secret"}

	if _, err := ctrl.Start(context.Background(), 1, ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if len(agg.registerCalls) != 0 {
		t.Errorf("register called %d times, want 0", len(agg.registerCalls))
	}
	if creds.byUser[1].ExternalSecret != "old-secret" {
		t.Error("existing secret was overwritten")
	}
}

func TestController_Start_RetriesRegistrationWithAlternateID(t *testing.T) {
	agg := &fakeAggregator{
		registerFn: func(userID string) (*snaptrade.Credential, error) {
			if userID == "user-1" {
				return nil, snaptrade.ErrUserExists
			}
			return &snaptrade.Credential{UserID: userID, UserSecret: "s2"}, nil
		},
	}
	ctrl, creds, _, _ := newTestController(agg)

	if _, err := ctrl.Start(context.Background(), 1, ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if len(agg.registerCalls) != 2 {
		t.Fatalf("register called %d times, want 2", len(agg.registerCalls))
	}
	if agg.registerCalls[1] == "user-1" {
		t.Error("retry reused the conflicting identifier")
	}
	if creds.byUser[1] == nil || creds.byUser[1].ExternalSecret != "s2" {
		t.Errorf("stored credential = %+v, want secret s2", creds.byUser[1])
	}
}

func TestController_Start_MissingRedirectConfig(t *testing.T) {
	ctrl := NewController(&fakeAggregator{}, newFakeCredentials(), newFakeSessions(), "", nil)
	_, err := ctrl.Start(context.Background(), 1, "")
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("Start() error = %v, want configuration error", err)
	}
}

func TestController_Resolve_UnknownSession(t *testing.T) {
	ctrl, _, _, sync := newTestController(&fakeAggregator{})

	err := ctrl.Resolve(context.Background(), "missing", "auth-1")
	if !errors.Is(err, apperrors.ErrSessionState) {
		t.Errorf("Resolve() error = %v, want session state error", err)
	}
	if len(sync.calls) != 0 {
		t.Error("sync must not run for an unknown session")
	}
}

func TestController_Resolve_SecondResolutionRejected(t *testing.T) {
	agg := &fakeAggregator{
		connections: []snaptrade.Connection{{ID: "conn-1", BrokerageAuthorizationID: "auth-1"}},
	}
	ctrl, creds, sessions, sync := newTestController(agg)
	creds.byUser[1] = &models.BrokerCredential{UserID: 1, ExternalUserID: "u1", ExternalSecret: "s1"}
	sessions.Create(&models.ConnectionSession{ID: "sess-1", UserID: 1, Status: models.SessionPending})

	if err := ctrl.Resolve(context.Background(), "sess-1", "auth-1"); err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	if len(sync.calls) != 1 || sync.calls[0] != 1 {
		t.Errorf("sync calls = %v, want [1]", sync.calls)
	}

	err := ctrl.Resolve(context.Background(), "sess-1", "auth-1")
	if !errors.Is(err, apperrors.ErrSessionState) {
		t.Errorf("second Resolve() error = %v, want session state error", err)
	}
	if len(sync.calls) != 1 {
		t.Errorf("sync calls after second resolve = %d, want 1", len(sync.calls))
	}
}

func TestController_Resolve_NoMatchingConnection(t *testing.T) {
	agg := &fakeAggregator{
		connections: []snaptrade.Connection{{ID: "conn-1", BrokerageAuthorizationID: "other"}},
	}
	ctrl, creds, sessions, sync := newTestController(agg)
	creds.byUser[1] = &models.BrokerCredential{UserID: 1, ExternalUserID: "u1", ExternalSecret: "s1"}
	sessions.Create(&models.ConnectionSession{ID: "sess-1", UserID: 1, Status: models.SessionPending})

	err := ctrl.Resolve(context.Background(), "sess-1", "auth-1")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want not found", err)
	}
	if sessions.byID["sess-1"].Status != models.SessionPending {
		t.Error("session must stay pending when no connection matches")
	}
	if len(sync.calls) != 0 {
		t.Error("sync must not run when no connection matches")
	}
}

func TestController_HandlePortalEvent_Success(t *testing.T) {
	agg := &fakeAggregator{
		connections: []snaptrade.Connection{{ID: "conn-1", BrokerageAuthorizationID: "auth-1"}},
	}
	ctrl, creds, sessions, sync := newTestController(agg)
	creds.byUser[1] = &models.BrokerCredential{UserID: 1, ExternalUserID: "u1", ExternalSecret: "s1"}
	sessions.Create(&models.ConnectionSession{ID: "sess-1", UserID: 1, Status: models.SessionPending})

	err := ctrl.HandlePortalEvent(context.Background(), PortalEvent{
		Type: EventSuccess, SessionID: "sess-1", AuthorizationID: "auth-1",
	})
	if err != nil {
		t.Fatalf("HandlePortalEvent() error = %v", err)
	}
	if sessions.byID["sess-1"].Status != models.SessionCompleted {
		t.Errorf("session status = %q, want completed", sessions.byID["sess-1"].Status)
	}
	if len(sync.calls) != 1 {
		t.Errorf("sync calls = %d, want 1", len(sync.calls))
	}
}

func TestController_HandlePortalEvent_ErrorMarksSession(t *testing.T) {
	ctrl, _, sessions, sync := newTestController(&fakeAggregator{})
	sessions.Create(&models.ConnectionSession{ID: "sess-1", UserID: 1, Status: models.SessionPending})

	err := ctrl.HandlePortalEvent(context.Background(), PortalEvent{
		Type: EventError, SessionID: "sess-1", Message: "user declined",
	})
	if err != nil {
		t.Fatalf("HandlePortalEvent() error = %v", err)
	}
	if sessions.byID["sess-1"].Status != models.SessionError {
		t.Errorf("session status = %q, want error", sessions.byID["sess-1"].Status)
	}
	if sessions.byID["sess-1"].ErrorMessage != "user declined" {
		t.Errorf("error message = %q, want 'user declined'", sessions.byID["sess-1"].ErrorMessage)
	}
	if len(sync.calls) != 0 {
		t.Error("sync must not run on a portal error")
	}
}

func TestController_HandlePortalEvent_ClosedIsNoOp(t *testing.T) {
	ctrl, _, sessions, _ := newTestController(&fakeAggregator{})
	sessions.Create(&models.ConnectionSession{ID: "sess-1", UserID: 1, Status: models.SessionPending})

	for _, eventType := range []string{EventClosed, EventCloseModal} {
		if err := ctrl.HandlePortalEvent(context.Background(), PortalEvent{Type: eventType, SessionID: "sess-1"}); err != nil {
			t.Errorf("HandlePortalEvent(%s) error = %v", eventType, err)
		}
	}
	if sessions.byID["sess-1"].Status != models.SessionPending {
		t.Error("closed events must not change session state")
	}
}

func TestController_HandlePortalEvent_UnknownType(t *testing.T) {
	ctrl, _, _, _ := newTestController(&fakeAggregator{})
	err := ctrl.HandlePortalEvent(context.Background(), PortalEvent{Type: "PING"})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("HandlePortalEvent() error = %v, want validation error", err)
	}
}

func TestController_Disconnect_AllowsReRegistration(t *testing.T) {
	agg := &fakeAggregator{}
	ctrl, creds, _, _ := newTestController(agg)
	creds.byUser[1] = &models.BrokerCredential{UserID: 1, ExternalUserID: "u1", ExternalSecret: "s1"}

	if err := ctrl.Disconnect(1); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if _, err := ctrl.Start(context.Background(), 1, ""); err != nil {
		t.Fatalf("Start() after disconnect error = %v", err)
	}
	if len(agg.registerCalls) != 1 {
		t.Errorf("register called %d times after disconnect, want 1", len(agg.registerCalls))
	}
}
