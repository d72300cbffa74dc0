package claim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClaim_Validate(t *testing.T) {
	require.NoError(t, String(TypeName, "alice").Validate())
	require.NoError(t, Bool(TypeEmailVerified, true).Validate())
	require.NoError(t, JSON(TypeAddress, `{"locality":"Heidelberg"}`).Validate())
	require.NoError(t, Claim{Type: "location", Value: "somewhere"}.Validate())

	require.ErrorIs(t, Claim{Value: "x"}.Validate(), ErrInvalidClaimType)
	require.ErrorIs(t, Claim{Type: TypeEmailVerified, Value: "yes please", ValueType: ValueTypeBoolean}.Validate(), ErrInvalidClaimValue)
	require.ErrorIs(t, JSON(TypeAddress, `{ 'street': 'single quotes' }`).Validate(), ErrInvalidClaimValue)
	require.ErrorIs(t, Claim{Type: "x", Value: "1", ValueType: "integer"}.Validate(), ErrUnknownValueType)
}

func TestClaim_Typed(t *testing.T) {
	v, err := Bool(TypeEmailVerified, true).Typed()
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = JSON(TypeAddress, `{"postal_code":69118,"country":"Germany"}`).Typed()
	require.NoError(t, err)
	require.Equal(t, map[string]any{"postal_code": float64(69118), "country": "Germany"}, v)

	v, err = String(TypeName, "bob").Typed()
	require.NoError(t, err)
	require.Equal(t, "bob", v)
}

func TestAppendPayload_MultiValuedBecomesArray(t *testing.T) {
	payload := map[string]any{}
	err := AppendPayload(payload,
		String(TypeRole, "Admin"),
		String(TypeRole, "Editor"),
		String(TypeRole, "Viewer"),
		Bool(TypeEmailVerified, false),
	)

	require.NoError(t, err)
	require.Equal(t, []any{"Admin", "Editor", "Viewer"}, payload[TypeRole])
	require.Equal(t, false, payload[TypeEmailVerified])
}

func TestFromPayload_SortedAndExpanded(t *testing.T) {
	claims := FromPayload(map[string]any{
		"sub":            "42",
		"role":           []any{"Admin", "Editor"},
		"email_verified": true,
		"exp":            float64(1700000000),
		"address":        map[string]any{"country": "Germany"},
	})

	require.Equal(t, []Claim{
		JSON("address", `{"country":"Germany"}`),
		Bool("email_verified", true),
		String("exp", "1700000000"),
		String("role", "Admin"),
		String("role", "Editor"),
		String("sub", "42"),
	}, claims)
}
