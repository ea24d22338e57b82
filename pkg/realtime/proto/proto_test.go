package proto_test

import (
	"testing"

	"github.com/nsyszr/rtdb/pkg/realtime/proto"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalCommand(t *testing.T) {
	frame := []byte(`{"type":"login","referenceId":"ref-1","username":"alice","password":"secret"}`)

	cmd, err := proto.UnmarshalCommand(frame)
	require.NoError(t, err)
	require.Equal(t, proto.CommandTypeLogin, cmd.Type)
	require.Equal(t, "ref-1", cmd.ReferenceID)
	require.Empty(t, cmd.AuthToken)

	var payload proto.LoginCommand
	require.NoError(t, cmd.Decode(&payload))
	require.Equal(t, "alice", payload.Username)
	require.Equal(t, "secret", payload.Password)
}

func TestUnmarshalCommandCarriesAuthToken(t *testing.T) {
	frame := []byte(`{"type":"query_roles","referenceId":"ref-2","authToken":"abc.def.ghi"}`)

	cmd, err := proto.UnmarshalCommand(frame)
	require.NoError(t, err)
	require.Equal(t, proto.CommandTypeQueryRoles, cmd.Type)
	require.Equal(t, "abc.def.ghi", cmd.AuthToken)
}

func TestUnmarshalCommandRejectsInvalidJSON(t *testing.T) {
	_, err := proto.UnmarshalCommand([]byte(`{"type":`))
	require.Error(t, err)
	require.True(t, proto.IsProtocolError(err))
}

func TestUnmarshalCommandRejectsMissingType(t *testing.T) {
	_, err := proto.UnmarshalCommand([]byte(`{"referenceId":"ref-3"}`))
	require.Error(t, err)
	require.True(t, proto.IsProtocolError(err))
}

func TestDecodeRejectsMismatchedPayload(t *testing.T) {
	cmd, err := proto.UnmarshalCommand([]byte(`{"type":"update_role","referenceId":"ref-4","id":42}`))
	require.NoError(t, err)

	var payload proto.UpdateRoleCommand
	err = cmd.Decode(&payload)
	require.Error(t, err)
	require.True(t, proto.IsProtocolError(err))
}

func TestNewErrorResponseFromCommandError(t *testing.T) {
	res := proto.NewErrorResponse("ref-5", proto.NewAuthenticationError("Login failed"))
	require.Equal(t, "ref-5", res.ReferenceID)
	require.False(t, res.Success)
	require.Nil(t, res.Payload)
	require.Len(t, res.Errors, 1)
	require.Equal(t, proto.ErrCodeAuthentication, res.Errors[0].Code)
	require.Equal(t, "Login failed", res.Errors[0].Message)
}

func TestNewErrorResponseFromFieldValidationError(t *testing.T) {
	err := proto.NewFieldValidationError(
		proto.ErrorDetail{Code: proto.ErrCodeValidation, Field: "id", Message: "failed on the 'required' rule"},
		proto.ErrorDetail{Code: proto.ErrCodeValidation, Field: "name", Message: "failed on the 'required' rule"},
	)

	res := proto.NewErrorResponse("ref-6", err)
	require.Len(t, res.Errors, 2)
	require.Equal(t, "id", res.Errors[0].Field)
	require.Equal(t, "name", res.Errors[1].Field)
}

func TestNewErrorResponseFromPlainError(t *testing.T) {
	res := proto.NewErrorResponse("ref-7", errPlain("boom"))
	require.Len(t, res.Errors, 1)
	require.Equal(t, proto.ErrCodeStorage, res.Errors[0].Code)
	require.Equal(t, "boom", res.Errors[0].Message)
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func TestResponseMarshalOmitsEmptySections(t *testing.T) {
	out, err := proto.NewResultResponse("ref-8", map[string]string{"k": "v"}).Marshal()
	require.NoError(t, err)
	require.JSONEq(t, `{"referenceId":"ref-8","success":true,"payload":{"k":"v"}}`, string(out))

	out, err = proto.NewErrorResponse("ref-9", proto.NewNotFoundError("Role not found")).Marshal()
	require.NoError(t, err)
	require.JSONEq(t, `{"referenceId":"ref-9","success":false,"errors":[{"code":"ERR_NOT_FOUND","message":"Role not found"}]}`, string(out))
}

func TestNotificationMarshalHasNoReferenceID(t *testing.T) {
	out, err := proto.Notification{Type: "roles", Payload: []string{}}.Marshal()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"roles","payload":[]}`, string(out))
	require.NotContains(t, string(out), "referenceId")
}
