package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func ptr(s string) *string { return &s }

func TestChecker_Rules(t *testing.T) {
	c := New()

	require.False(t, c.Required("name", nil, true))
	require.False(t, c.Required("phone", nil, false))
	require.False(t, c.Required("address", ptr("   "), false))
	require.True(t, c.Required("neighborhood", ptr("Centro"), true))

	c.MaxLen("postal_code", "12345678901", 10)
	c.Email("email", "not-an-email")
	_, ok := c.Date("date_of_birth", "31/12/1990")
	require.False(t, ok)

	err := c.Err()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{"The name field is required."}, verr.Fields["name"])
	require.NotContains(t, verr.Fields, "phone")
	require.Equal(t, []string{"The address field is required."}, verr.Fields["address"])
	require.Equal(t, []string{"The postal code field must not be greater than 10 characters."}, verr.Fields["postal_code"])
	require.Equal(t, []string{"The email field must be a valid email address."}, verr.Fields["email"])
	require.Equal(t, []string{"The date of birth field must be a valid date."}, verr.Fields["date_of_birth"])
	require.True(t, c.Valid("neighborhood"))
}

func TestChecker_Price(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "integer", input: "5", want: "5.00", ok: true},
		{name: "two decimals", input: "7.50", want: "7.50", ok: true},
		{name: "zero", input: "0", want: "0.00", ok: true},
		{name: "trailing zeros", input: "1.500", want: "1.50", ok: true},
		{name: "negative", input: "-1", ok: false},
		{name: "not a number", input: "abc", ok: false},
		{name: "three decimals", input: "1.234", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New()
			got, ok := c.Price("price", tc.input)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got.StringFixed(2))
				require.NoError(t, c.Err())
			} else {
				require.Error(t, c.Err())
			}
		})
	}
}
