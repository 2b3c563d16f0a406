package arbiter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHTTPGameLifecycle(t *testing.T) {
	h := newHarness(t)
	router := h.srv.Router()

	rr := doJSON(t, router, "POST", "/v1/games", proposeReq{
		Caller:     h.ids[0].String(),
		Rules:      "tictactoe",
		StakeAtoms: 500,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var created struct {
		GameID uint64 `json:"game_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	path := fmt.Sprintf("/v1/games/%d", created.GameID)
	rr = doJSON(t, router, "POST", path+"/accept", acceptReq{
		Caller:     h.ids[1].String(),
		StakeAtoms: 500,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, router, "GET", path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var inf sessionResp
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &inf))
	assert.True(t, inf.Started)
	assert.Equal(t, int64(1000), inf.EscrowAtoms)
	assert.Equal(t, h.ids[0].String(), inf.Players[0])

	rr = doJSON(t, router, "POST", path+"/resign", callerReq{Caller: h.ids[0].String()})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int64(1000), int64(h.bank.Balance(h.ids[1])))
}

func TestHTTPErrorMapping(t *testing.T) {
	h := newHarness(t)
	router := h.srv.Router()

	// Unknown session.
	rr := doJSON(t, router, "GET", "/v1/games/404", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Stake mismatch is a plain bad request.
	created := doJSON(t, router, "POST", "/v1/games", proposeReq{
		Caller:     h.ids[0].String(),
		Rules:      "tictactoe",
		StakeAtoms: 500,
	})
	require.Equal(t, http.StatusOK, created.Code)
	var resp struct {
		GameID uint64 `json:"game_id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	rr = doJSON(t, router, "POST", fmt.Sprintf("/v1/games/%d/accept", resp.GameID), acceptReq{
		Caller:     h.ids[1].String(),
		StakeAtoms: 1,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// An outsider resigning is forbidden.
	doJSON(t, router, "POST", fmt.Sprintf("/v1/games/%d/accept", resp.GameID), acceptReq{
		Caller:     h.ids[1].String(),
		StakeAtoms: 500,
	})
	rr = doJSON(t, router, "POST", fmt.Sprintf("/v1/games/%d/resign", resp.GameID), callerReq{
		Caller: outsiderID().String(),
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
