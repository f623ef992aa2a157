package query_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dialdesk/go-console/query"
)

func TestKeyDeterminism(t *testing.T) {
	a := query.NewKey("agents", "team-1", 10, 0, map[string]string{"status": "online", "name": "jo"})
	b := query.NewKey("agents", "team-1", 10, 0, map[string]string{"name": "jo", "status": "online"})
	require.Equal(t, a.String(), b.String())
}

func TestKeyDistinguishesParameters(t *testing.T) {
	base := query.NewKey("agents", "team-1", 10, 0, map[string]string{})
	variants := []query.Key{
		query.NewKey("agents", "team-2", 10, 0, map[string]string{}),
		query.NewKey("agents", "team-1", 20, 0, map[string]string{}),
		query.NewKey("agents", "team-1", 10, 5, map[string]string{}),
		query.NewKey("agents", "team-1", 10, 0, map[string]string{"status": "online"}),
		query.NewKey("campaigns", "team-1", 10, 0, map[string]string{}),
	}
	for _, v := range variants {
		require.NotEqual(t, base.String(), v.String())
	}
}

func TestKeyPartsDoNotCollideAcrossPositions(t *testing.T) {
	// ("a", "bc") and ("ab", "c") must stay distinct
	a := query.NewKey("r", "a", "bc")
	b := query.NewKey("r", "ab", "c")
	require.NotEqual(t, a.String(), b.String())
}

func TestKeyResource(t *testing.T) {
	k := query.NewKey("agents", "team-1")
	require.Equal(t, "agents", k.Resource())
}
