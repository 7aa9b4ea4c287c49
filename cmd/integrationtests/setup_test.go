package integrationtests

import (
	auction "auction-engine/internal/auctionService"
	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/notify"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"
	settlement "auction-engine/internal/settlementService"
	wallet "auction-engine/internal/walletService"
	"auction-engine/services/auction/handler"
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupTestStack wires the full service graph against the in-memory
// repository, the same shape main builds, and returns the HTTP router.
func SetupTestStack(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	dispatcher := notify.NewAsyncDispatcher(notify.LogSender{}, 64)
	t.Cleanup(dispatcher.Close)

	walletSvc := wallet.NewWalletService(repo)
	biddingSvc := bidding.NewBiddingService(repo, dispatcher)
	settlementSvc := settlement.NewSettlementService(walletSvc, repo, repo, dispatcher, settlement.GrantPolicy{
		MaxDownloads: 3,
		TTL:          72 * time.Hour,
		AccessTTL:    5 * time.Minute,
	})
	auctionSvc := auction.NewAuctionService(repo, settlementSvc)

	h := handler.NewAuctionHandler(biddingSvc, auctionSvc, walletSvc, settlementSvc)
	return server.SetupRouter(h)
}

// ExecuteRequestAndParse executes an HTTP request on the given router and
// parses the response envelope.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

// Data unwraps the data field of a response envelope as an object.
func Data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()

	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no data object: %v", resp)
	}
	return data
}
