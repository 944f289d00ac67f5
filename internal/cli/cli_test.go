package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStakes(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    []gamePlayer
		wantErr bool
	}{
		{
			name:  "valid pairs",
			pairs: []string{"alice=20", " bob = 7.50 "},
			want:  []gamePlayer{{PlayerID: "alice", Bet: "20"}, {PlayerID: "bob", Bet: "7.50"}},
		},
		{name: "missing separator", pairs: []string{"alice"}, wantErr: true},
		{name: "missing bet", pairs: []string{"alice="}, wantErr: true},
		{name: "missing id", pairs: []string{"=5"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStakes(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGamePath(t *testing.T) {
	assert.Equal(t, "/api/v1/games/g1", gamePath("g1"))
	assert.Equal(t, "/api/v1/games/local:abc/end", gamePath("local:abc", "end"))
	assert.Equal(t, "/api/v1/games/a%2Fb/players", gamePath("a/b", "players"))
}

func TestClientDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"code":"INSUFFICIENT_BALANCE","message":"Insufficient balance"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok")
	err := c.Post("/api/v1/games/g1/players", map[string]string{"player_id": "bob"}, nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusPaymentRequired, apiErr.Status)
	assert.Equal(t, "INSUFFICIENT_BALANCE", apiErr.Code)
	assert.Equal(t, "Insufficient balance (INSUFFICIENT_BALANCE)", err.Error())
}

func TestClientDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/players/alice", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"alice","name":"Alice","balance":"12.50"}`))
	}))
	defer srv.Close()

	var p Player
	require.NoError(t, NewClient(srv.URL, "").Get("/api/v1/players/alice", &p))
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "12.50", p.Balance)
}

func TestReadEvents(t *testing.T) {
	stream := "event: connected\ndata: {\"status\":\"connected\"}\n\n" +
		"event: game.updated\ndata: {\ndata:   \"id\": \"g1\"\ndata: }\n\n" +
		": keepalive\n\n"

	type seen struct{ event, data string }
	var got []seen
	err := readEvents(strings.NewReader(stream), func(event, data string) {
		got = append(got, seen{event, data})
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "connected", got[0].event)
	assert.Equal(t, "game.updated", got[1].event)
	assert.Equal(t, "{\n  \"id\": \"g1\"\n}", got[1].data)
}

func TestWanted(t *testing.T) {
	assert.True(t, wanted(nil, "game.updated"))
	assert.True(t, wanted([]string{"game.updated"}, "game.updated"))
	assert.False(t, wanted([]string{"player.updated"}, "game.updated"))
}

func TestTokenFile(t *testing.T) {
	c := &Config{TokenFile: filepath.Join(t.TempDir(), "nested", "token")}

	require.NoError(t, c.LoadToken(), "a missing token file is fine")
	assert.Empty(t, c.Token)

	require.NoError(t, c.SaveToken("abc"))
	c.Token = ""
	require.NoError(t, c.LoadToken())
	assert.Equal(t, "abc", c.Token)

	require.NoError(t, c.ClearToken())
	_, err := os.Stat(c.TokenFile)
	assert.True(t, os.IsNotExist(err))
}

func TestPrintGameText(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{format: "text", w: &buf}
	winner := "alice"
	won, lost := "20.00", "-20.00"

	out.Print(Game{
		ID:       "g1",
		Name:     "Poker",
		Status:   "completed",
		TotalPot: "40.00",
		Winner:   &winner,
		Players: []Stake{
			{PlayerID: "alice", InitialBet: "20.00", FinalAmount: &won},
			{PlayerID: "bob", InitialBet: "20.00", FinalAmount: &lost},
		},
	})

	text := buf.String()
	assert.Contains(t, text, "Poker")
	assert.Contains(t, text, "Pot: 40.00")
	assert.Contains(t, text, "alice bet 20.00 -> 20.00")
	assert.Contains(t, text, "[winner]")
	assert.Contains(t, text, "bob bet 20.00 -> -20.00")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{format: "json", w: &buf}

	out.Print(HealthResult{Status: "ok"})

	assert.JSONEq(t, `{"status":"ok"}`, buf.String())
}
