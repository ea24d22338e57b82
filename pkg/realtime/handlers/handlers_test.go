package handlers_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nsyszr/rtdb/pkg/auth"
	"github.com/nsyszr/rtdb/pkg/model"
	"github.com/nsyszr/rtdb/pkg/realtime/dispatch"
	"github.com/nsyszr/rtdb/pkg/realtime/handlers"
	"github.com/nsyszr/rtdb/pkg/realtime/notify"
	"github.com/nsyszr/rtdb/pkg/realtime/proto"
	"github.com/nsyszr/rtdb/pkg/realtime/registry"
	"github.com/nsyszr/rtdb/pkg/storage"
	"github.com/nsyszr/rtdb/pkg/storage/memory"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	messages [][]byte
}

func (s *fakeSender) Send(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, data)
	return true
}

// split decodes captured frames into responses (correlated by reference id)
// and notifications (tagged with an entity type).
func (s *fakeSender) split(t *testing.T) ([]proto.Response, []proto.Notification) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	var responses []proto.Response
	var notifications []proto.Notification
	for _, data := range s.messages {
		var envelope struct {
			ReferenceID *string `json:"referenceId"`
			Type        string  `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &envelope))

		if envelope.ReferenceID != nil {
			var res proto.Response
			require.NoError(t, json.Unmarshal(data, &res))
			responses = append(responses, res)
			continue
		}

		var msg proto.Notification
		require.NoError(t, json.Unmarshal(data, &msg))
		notifications = append(notifications, msg)
	}
	return responses, notifications
}

func (s *fakeSender) lastResponse(t *testing.T) proto.Response {
	t.Helper()
	responses, _ := s.split(t)
	require.NotEmpty(t, responses)
	return responses[len(responses)-1]
}

type fixture struct {
	store      storage.Interface
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	issuer     *auth.Issuer

	adminRole *model.Role
	opsRole   *model.Role
	admin     *model.User
	operator  *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	reg := registry.New()
	issuer := auth.NewIssuer("test-secret", 15*time.Minute)
	sessions := auth.NewSessionManager(store, auth.NewBcryptVerifier(), issuer, 7*24*time.Hour, false)
	notifier := notify.New(reg, nil)
	d := dispatch.New(reg, store, issuer)
	handlers.New(store, sessions, notifier).RegisterAll(d)

	f := &fixture{
		store:      store,
		registry:   reg,
		dispatcher: d,
		issuer:     issuer,
	}

	f.adminRole = &model.Role{Name: "Admin"}
	require.NoError(t, store.Roles().Create(f.adminRole))
	f.opsRole = &model.Role{Name: "Operations"}
	require.NoError(t, store.Roles().Create(f.opsRole))

	f.admin = f.seedUser(t, "alice", "alice@example.com", "secret", f.adminRole.ID)
	f.operator = f.seedUser(t, "bob", "bob@example.com", "secret", f.opsRole.ID)

	return f
}

func (f *fixture) seedUser(t *testing.T, username, email, password string, roleIDs ...string) *model.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RoleIDs:      roleIDs,
	}
	require.NoError(t, f.store.Users().Create(user))
	return user
}

func (f *fixture) connect() (*registry.Connection, *fakeSender) {
	sender := &fakeSender{}
	return f.registry.Register(sender), sender
}

// connectAs simulates an established authenticated session by attaching the
// user's identity, the way a prior login would have.
func (f *fixture) connectAs(user *model.User) (*registry.Connection, *fakeSender) {
	conn, sender := f.connect()
	f.registry.AttachIdentity(conn.ID(), &auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		RoleIDs:  user.RoleIDs,
	})
	return conn, sender
}

func (f *fixture) tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token, _, err := f.issuer.Issue(user)
	require.NoError(t, err)
	return token
}

func (f *fixture) dispatch(conn *registry.Connection, format string, args ...interface{}) {
	f.dispatcher.Dispatch(conn, []byte(fmt.Sprintf(format, args...)))
}

func payloadField(t *testing.T, res proto.Response, key string) interface{} {
	t.Helper()
	payload, ok := res.Payload.(map[string]interface{})
	require.True(t, ok, "payload is not an object")
	return payload[key]
}

func TestLoginCommand(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"login","referenceId":"ref-1","username":"alice","password":"secret"}`)

	res := sender.lastResponse(t)
	require.True(t, res.Success)
	require.Equal(t, "ref-1", res.ReferenceID)
	require.NotEmpty(t, payloadField(t, res, "authToken"))
	require.NotEmpty(t, payloadField(t, res, "refreshToken"))
	require.Equal(t, float64(900), payloadField(t, res, "validFor"))

	userData, ok := payloadField(t, res, "userData").(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "alice", userData["username"])
	require.NotContains(t, userData, "password")
	require.NotContains(t, userData, "passwordHash")

	require.True(t, conn.IsAuthenticated())
	require.Equal(t, f.admin.ID, conn.Identity().UserID)
}

func TestLoginCommandFailureLeavesConnectionUnauthenticated(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"login","referenceId":"ref-1","username":"alice","password":"wrong"}`)

	res := sender.lastResponse(t)
	require.False(t, res.Success)
	require.Equal(t, proto.ErrCodeAuthentication, res.Errors[0].Code)
	require.Equal(t, "Login failed", res.Errors[0].Message)
	require.False(t, conn.IsAuthenticated())
}

func TestLoginCommandEmptyCredentials(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"login","referenceId":"ref-1","username":"","password":""}`)

	res := sender.lastResponse(t)
	require.False(t, res.Success)
	require.Equal(t, proto.ErrCodeValidation, res.Errors[0].Code)
	require.Equal(t, "Username and password cannot be empty", res.Errors[0].Message)
}

func TestRefreshCommand(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"login","referenceId":"ref-1","username":"alice","password":"secret"}`)
	refreshToken := payloadField(t, sender.lastResponse(t), "refreshToken").(string)

	conn2, sender2 := f.connect()
	f.dispatch(conn2, `{"type":"refresh","referenceId":"ref-2","refreshToken":"%s"}`, refreshToken)

	res := sender2.lastResponse(t)
	require.True(t, res.Success)
	require.NotEmpty(t, payloadField(t, res, "authToken"))
	require.True(t, conn2.IsAuthenticated())
}

func TestLogoutCommand(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"login","referenceId":"ref-1","username":"alice","password":"secret"}`)
	refreshToken := payloadField(t, sender.lastResponse(t), "refreshToken").(string)
	require.True(t, conn.IsAuthenticated())

	f.dispatch(conn, `{"type":"logout","referenceId":"ref-2","refreshToken":"%s"}`, refreshToken)

	res := sender.lastResponse(t)
	require.True(t, res.Success)
	require.False(t, conn.IsAuthenticated())

	_, err := f.store.RefreshTokens().FindByToken(refreshToken)
	require.Equal(t, storage.ErrNotFound, err)
}

func TestQueryRolesRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"query_roles","referenceId":"ref-1"}`)

	res := sender.lastResponse(t)
	require.False(t, res.Success)
	require.Equal(t, proto.ErrCodeAuthentication, res.Errors[0].Code)
}

func TestQueryRolesCommand(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"query_roles","referenceId":"ref-1","authToken":"%s"}`, f.tokenFor(t, f.admin))

	res := sender.lastResponse(t)
	require.True(t, res.Success)

	members, ok := payloadField(t, res, "members").([]interface{})
	require.True(t, ok)
	require.Len(t, members, 2)

	first := members[0].(map[string]interface{})
	require.Equal(t, "Admin", first["name"])
}

func TestQueryUsersCommand(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"query_users","referenceId":"ref-1","authToken":"%s"}`, f.tokenFor(t, f.admin))

	res := sender.lastResponse(t)
	require.True(t, res.Success)

	members, ok := payloadField(t, res, "members").([]interface{})
	require.True(t, ok)
	require.Len(t, members, 2)

	first := members[0].(map[string]interface{})
	require.Equal(t, "alice", first["username"])
	require.NotContains(t, first, "passwordHash")
}

func TestUpdateRoleCommand(t *testing.T) {
	f := newFixture(t)

	adminConn, adminSender := f.connectAs(f.admin)
	opsConn, opsSender := f.connectAs(f.operator)
	_, anonSender := f.connect()

	f.dispatch(adminConn, `{"type":"update_role","referenceId":"ref-1","authToken":"%s","id":"%s","name":"Operators"}`,
		f.tokenFor(t, f.admin), f.opsRole.ID)
	_ = opsConn

	res := adminSender.lastResponse(t)
	require.True(t, res.Success)
	require.Equal(t, "Operators", payloadField(t, res, "name"))

	role, err := f.store.Roles().FindByID(f.opsRole.ID)
	require.NoError(t, err)
	require.Equal(t, "Operators", role.Name)

	// Role lists are global: every connection gets the roles push
	_, adminNotes := adminSender.split(t)
	_, opsNotes := opsSender.split(t)
	_, anonNotes := anonSender.split(t)

	require.Len(t, filterByType(adminNotes, "roles"), 1)
	require.Len(t, filterByType(opsNotes, "roles"), 1)
	require.Len(t, filterByType(anonNotes, "roles"), 1)

	// User lists go to role holders only
	require.Len(t, filterByType(adminNotes, "users"), 0)
	require.Len(t, filterByType(opsNotes, "users"), 1)
	require.Len(t, filterByType(anonNotes, "users"), 0)
}

func TestUpdateRoleCommandNotFound(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"update_role","referenceId":"ref-1","authToken":"%s","id":"no-such-role","name":"X"}`,
		f.tokenFor(t, f.admin))

	res := sender.lastResponse(t)
	require.False(t, res.Success)
	require.Equal(t, proto.ErrCodeNotFound, res.Errors[0].Code)
	require.Equal(t, "Role not found", res.Errors[0].Message)
}

func TestUpdateRoleCommandValidation(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"update_role","referenceId":"ref-1","authToken":"%s","id":"%s"}`,
		f.tokenFor(t, f.admin), f.opsRole.ID)

	res := sender.lastResponse(t)
	require.False(t, res.Success)
	require.Equal(t, proto.ErrCodeValidation, res.Errors[0].Code)
	require.Equal(t, "Name", res.Errors[0].Field)
}

func TestUpdateUserCommand(t *testing.T) {
	f := newFixture(t)

	adminConn, adminSender := f.connectAs(f.admin)
	bobConn, bobSender := f.connectAs(f.operator)
	bystander := f.seedUser(t, "carol", "carol@example.com", "secret")
	carolConn, carolSender := f.connectAs(bystander)

	f.dispatch(bobConn, `{"type":"update_user","referenceId":"ref-1","authToken":"%s","id":"%s","firstName":"Robert"}`,
		f.tokenFor(t, f.operator), f.operator.ID)
	_, _ = adminConn, carolConn

	res := bobSender.lastResponse(t)
	require.True(t, res.Success)
	require.Equal(t, "Robert", payloadField(t, res, "firstName"))

	user, err := f.store.Users().FindByID(f.operator.ID)
	require.NoError(t, err)
	require.Equal(t, "Robert", user.FirstName)
	require.Equal(t, "bob", user.Username)

	// The affected user and admins get the users push, bystanders do not
	_, adminNotes := adminSender.split(t)
	_, bobNotes := bobSender.split(t)
	_, carolNotes := carolSender.split(t)

	require.Len(t, filterByType(adminNotes, "users"), 1)
	require.Len(t, filterByType(bobNotes, "users"), 1)
	require.Len(t, filterByType(carolNotes, "users"), 0)
}

func TestUpdateUserCommandRejectsInvalidEmail(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"update_user","referenceId":"ref-1","authToken":"%s","id":"%s","email":"not-an-email"}`,
		f.tokenFor(t, f.admin), f.admin.ID)

	res := sender.lastResponse(t)
	require.False(t, res.Success)
	require.Equal(t, proto.ErrCodeValidation, res.Errors[0].Code)
	require.Equal(t, "Email", res.Errors[0].Field)
}

func TestUpdateUserCommandNotFound(t *testing.T) {
	f := newFixture(t)
	conn, sender := f.connect()

	f.dispatch(conn, `{"type":"update_user","referenceId":"ref-1","authToken":"%s","id":"no-such-user","firstName":"X"}`,
		f.tokenFor(t, f.admin))

	res := sender.lastResponse(t)
	require.False(t, res.Success)
	require.Equal(t, proto.ErrCodeNotFound, res.Errors[0].Code)
	require.Equal(t, "User not found", res.Errors[0].Message)
}

func filterByType(notifications []proto.Notification, entity string) []proto.Notification {
	var matching []proto.Notification
	for _, n := range notifications {
		if n.Type == entity {
			matching = append(matching, n)
		}
	}
	return matching
}
