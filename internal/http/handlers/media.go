package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/external"
	"github.com/hongminglow/custody-be/internal/http/respond"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models/dto"
)

const maxUploadBytes = 10 << 20

// MediaHandler proxies the NFT indexer and the content store.
type MediaHandler struct {
	nfts    external.NFTIndexer
	content external.ContentStore
	log     logging.Logger
}

// NewMediaHandler constructs the handler.
func NewMediaHandler(nfts external.NFTIndexer, content external.ContentStore, log logging.Logger) *MediaHandler {
	return &MediaHandler{nfts: nfts, content: content, log: log}
}

// Register attaches the media routes behind the API key gate.
func (h *MediaHandler) Register(mux *http.ServeMux, apiKey Middleware) {
	mux.Handle("POST /fetch-nft-data", apiKey(http.HandlerFunc(h.handleNFTs)))
	mux.Handle("POST /upload-content", apiKey(http.HandlerFunc(h.handleUpload)))
}

func (h *MediaHandler) handleNFTs(w http.ResponseWriter, r *http.Request) {
	urls, err := h.nfts.WalletNFTs(r.Context(), r.Header.Get("Address"), r.Header.Get("Chain"))
	if err != nil {
		fail(w, r, h.log, "fetch nfts", err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", dto.NFTResponse{NFTs: urls})
}

func (h *MediaHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = apperr.Validation("content exceeds 10 MiB")
		} else {
			err = apperr.Validation("could not read content")
		}
		fail(w, r, h.log, "upload content", err)
		return
	}
	path, err := h.content.Put(r.Context(), body, r.Header.Get("Content-Type"))
	if err != nil {
		fail(w, r, h.log, "upload content", err)
		return
	}
	respond.JSON(w, http.StatusCreated, "content stored", dto.UploadResponse{Path: path})
}
