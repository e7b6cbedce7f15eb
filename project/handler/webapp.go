package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"order-bot/project/dto"
	"order-bot/project/infrastructure/httpsec"

	"github.com/rs/zerolog/hlog"
)

// maxBodyBytes は Mini App リクエスト本体の上限です
const maxBodyBytes = 1 << 20

// 応答メッセージ（認証失敗の理由は区別しません）
const (
	errMethodNotAllowed = "method not allowed"
	errBadJSON          = "invalid JSON body"
	errMissingInitData  = "missing initData"
	errMissingData      = "missing data"
	errForbidden        = "invalid initData"
)

// InitDataAuthenticator は Mini App の initData を検証します（httpsec.Authenticator が実装します）
type InitDataAuthenticator interface {
	Authenticate(raw string) (*httpsec.WebAppSession, error)
}

// decodePost は POST 以外を 405 で、壊れた JSON を 400 で拒否します
func decodePost(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadJSON)
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, errBadJSON)
		return false
	}
	return true
}

// authenticate は initData を検証し、失敗時は理由を問わず 403 を返します
// 失敗理由はログにだけ残します（initData 本体とシークレットは記録しません）
func authenticate(w http.ResponseWriter, r *http.Request, auth InitDataAuthenticator, initData string) (*httpsec.WebAppSession, bool) {
	session, err := auth.Authenticate(initData)
	if err != nil {
		reason := "mismatch"
		switch {
		case errors.Is(err, httpsec.ErrMalformedToken):
			reason = "malformed"
		case errors.Is(err, httpsec.ErrMissingSignature):
			reason = "missing_hash"
		case errors.Is(err, httpsec.ErrExpired):
			reason = "expired"
		}
		hlog.FromRequest(r).Warn().Str("reason", reason).Str("path", r.URL.Path).Msg("initData rejected")
		writeError(w, http.StatusForbidden, errForbidden)
		return nil, false
	}
	return session, true
}

// userID はログ用にセッションのユーザーIDを返します
func userID(s *httpsec.WebAppSession) int64 {
	if s == nil || s.User == nil {
		return 0
	}
	return s.User.ID
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Success: false, Error: msg})
}
