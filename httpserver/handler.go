package httpserver

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openclave/wallet-custody-backend/api"
	"github.com/openclave/wallet-custody-backend/custody"
	"github.com/openclave/wallet-custody-backend/interfaces"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Handler translates HTTP requests into lifecycle manager calls and maps
// the error taxonomy onto status codes.
type Handler struct {
	manager *custody.Manager
	log     *slog.Logger
}

// NewHandler creates a handler around the lifecycle manager.
func NewHandler(manager *custody.Manager, log *slog.Logger) *Handler {
	return &Handler{manager: manager, log: log}
}

// HandleGenerate creates a fresh wallet for the user in the URL.
//
// URL format: POST /api/wallet/{user_id}/generate
//
// The response is the only transmission of the device shard and recovery
// passphrase; neither is recoverable from the backend afterwards.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	result, err := h.manager.GenerateKey(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, userID, "generate", err)
		return
	}

	h.writeJSON(w, &api.GenerateResponse{
		PublicKey:          result.PublicKey,
		Address:            result.Address,
		DeviceShard:        api.ShardFromDomain(result.DeviceShard),
		ServerShard:        api.ShardFromDomain(result.ServerShard),
		RecoveryShard:      api.ShardFromDomain(result.RecoveryShard),
		RecoveryPassphrase: result.RecoveryPassphrase,
	})
}

// HandleRecover reconstructs the wallet key from two shards and returns it
// to the caller. The reconstructed key is zeroed server-side as soon as
// the response is built.
//
// URL format: POST /api/wallet/{user_id}/recover
func (h *Handler) HandleRecover(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	req, ok := h.decodeRecoverRequest(w, r, userID)
	if !ok {
		return
	}

	recovered, err := h.manager.RecoverKey(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, userID, "recover", err)
		return
	}
	defer recovered.Destroy()

	h.writeJSON(w, &api.RecoverResponse{
		PrivateKey: hex.EncodeToString(recovered.PrivateKey),
		PublicKey:  recovered.PublicKey,
		Address:    recovered.Address,
	})
}

// HandleRotate re-shards the wallet key with fresh randomness. All
// previously issued shards stop working.
//
// URL format: POST /api/wallet/{user_id}/rotate
func (h *Handler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	req, ok := h.decodeRecoverRequest(w, r, userID)
	if !ok {
		return
	}

	result, err := h.manager.RotateShards(r.Context(), userID, req)
	if err != nil {
		h.writeDomainError(w, userID, "rotate", err)
		return
	}

	h.writeJSON(w, &api.GenerateResponse{
		PublicKey:          result.PublicKey,
		Address:            result.Address,
		DeviceShard:        api.ShardFromDomain(result.DeviceShard),
		ServerShard:        api.ShardFromDomain(result.ServerShard),
		RecoveryShard:      api.ShardFromDomain(result.RecoveryShard),
		RecoveryPassphrase: result.RecoveryPassphrase,
	})
}

// HandleSign signs a 32-byte digest with the reconstructed key. No key
// material appears in the response.
//
// URL format: POST /api/wallet/{user_id}/sign
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var wireReq api.SignRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&wireReq); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if wireReq.Recovery == nil {
		h.writeError(w, http.StatusBadRequest, "missing recovery shards")
		return
	}

	messageHash, err := hex.DecodeString(wireReq.MessageHash)
	if err != nil || len(messageHash) != 32 {
		h.writeError(w, http.StatusBadRequest, "message hash must be 32 bytes of hex")
		return
	}

	req, ok := h.recoverRequestToDomain(w, userID, wireReq.Recovery)
	if !ok {
		return
	}

	sig, err := h.manager.SignWithMPC(r.Context(), userID, messageHash, req)
	if err != nil {
		h.writeDomainError(w, userID, "sign", err)
		return
	}

	h.writeJSON(w, &api.SignResponse{
		Signature:  hex.EncodeToString(sig.Signature),
		RecoveryID: sig.RecoveryID,
	})
}

// decodeRecoverRequest reads and converts the shared recovery body. On
// failure the response is already written and ok is false.
func (h *Handler) decodeRecoverRequest(w http.ResponseWriter, r *http.Request, userID string) (*interfaces.RecoverRequest, bool) {
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return nil, false
	}

	var wireReq api.RecoverRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&wireReq); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	return h.recoverRequestToDomain(w, userID, &wireReq)
}

func (h *Handler) recoverRequestToDomain(w http.ResponseWriter, userID string, wireReq *api.RecoverRequest) (*interfaces.RecoverRequest, bool) {
	shard1, err := wireReq.Shard1.ToDomain()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	shard2, err := wireReq.Shard2.ToDomain()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	return &interfaces.RecoverRequest{
		UserID:             userID,
		Shard1:             shard1,
		Shard2:             shard2,
		RecoveryPassphrase: wireReq.RecoveryPassphrase,
	}, true
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
// Validation failures are the caller's fault (400); a missing wallet is
// 404; a failed decryption is an authentication failure (401) and stays
// indistinguishable between wrong passphrase and corrupted record; an
// unavailable master secret or other configuration problem is 503.
func (h *Handler) writeDomainError(w http.ResponseWriter, userID, op string, err error) {
	h.log.Error("Wallet operation failed",
		slog.String("user_id", userID),
		slog.String("op", op),
		"err", err)

	switch {
	case interfaces.IsValidationError(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, interfaces.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, interfaces.ErrDecryptionFailed):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, interfaces.ErrConfiguration):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&api.ErrorResponse{Error: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
