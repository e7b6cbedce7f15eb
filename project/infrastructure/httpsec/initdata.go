package httpsec

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
)

// 署名対象から除外される予約キー
const hashKey = "hash"

// 秘密鍵導出に使う固定キー
const webAppDataKey = "WebAppData"

// 検証失敗の内訳（ログ用）。呼び出し側の応答ではすべて同じ 403 に畳み込みます
var (
	ErrMalformedToken    = errors.New("httpsec: initData を解析できません")
	ErrMissingSignature  = errors.New("httpsec: hash がありません")
	ErrSignatureMismatch = errors.New("httpsec: 署名が一致しません")
	ErrExpired           = errors.New("httpsec: auth_date が古すぎます")
)

// AuthPayload は initData をデコードしたキーと値の組です
type AuthPayload map[string]string

// ParseInitData は "k1=v1&k2=v2" 形式の initData を AuthPayload に変換します
//
//   - 空のセグメントは無視します
//   - 最初の "=" で分割し、"=" が無いペアは値を空文字とします
//   - キーと値をパーセントデコードします（"+" はそのまま残します）
//   - 重複キーは後勝ちです
func ParseInitData(raw string) (AuthPayload, error) {
	p := make(AuthPayload)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.PathUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		val, err := url.PathUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("%w: key=%s: %v", ErrMalformedToken, key, err)
		}
		p[key] = val
	}
	if len(p) == 0 {
		return nil, ErrMalformedToken
	}
	return p, nil
}

// BuildCheckString は hash を除くキーをバイト順に並べ "key=value" を改行で連結します
func BuildCheckString(p AuthPayload) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		if k == hashKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k])
	}
	return b.String()
}

// Verify は payload の hash がボットのシークレットで署名されたものか検証します
// hash が無い場合は false を返します
func Verify(p AuthPayload, botSecret []byte) bool {
	claimed, ok := p[hashKey]
	if !ok {
		return false
	}
	expected := computeSignature(botSecret, BuildCheckString(p))
	// 定時間比較（タイミング攻撃対策）
	return hmac.Equal([]byte(expected), []byte(claimed))
}

// computeSignature は hex(HMAC(HMAC("WebAppData", botSecret), checkString)) を計算します
func computeSignature(botSecret []byte, checkString string) string {
	kh := hmac.New(sha256.New, []byte(webAppDataKey))
	kh.Write(botSecret)
	secretKey := kh.Sum(nil)

	h := hmac.New(sha256.New, secretKey)
	h.Write([]byte(checkString))
	return hex.EncodeToString(h.Sum(nil))
}

// SignInitData は fields に hash を付与した initData を生成します（テスト・開発用）
func SignInitData(fields map[string]string, botSecret []byte) string {
	p := make(AuthPayload, len(fields)+1)
	for k, v := range fields {
		if k == hashKey {
			continue
		}
		p[k] = v
	}
	sig := computeSignature(botSecret, BuildCheckString(p))

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, escapeComponent(k)+"="+escapeComponent(p[k]))
	}
	parts = append(parts, hashKey+"="+sig)
	return strings.Join(parts, "&")
}

// escapeComponent は英数字と "-_.~" 以外をすべて %XX にします
// "&" や "=" を含む値も ParseInitData で元に戻ります
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// WebAppUser は initData の user フィールドです
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// WebAppSession は検証済みの initData です
type WebAppSession struct {
	Payload  AuthPayload
	User     *WebAppUser
	AuthDate time.Time
}

// Authenticator は Mini App からのリクエストを検証します
// 起動後は不変なので、並行に呼び出して問題ありません
type Authenticator struct {
	botSecret []byte
	maxAge    time.Duration
	clock     clock.Clock
}

// NewAuthenticator は Authenticator を作成します
// maxAge が 0 の場合 auth_date の鮮度チェックを行いません
func NewAuthenticator(botSecret string, maxAge time.Duration, clk clock.Clock) *Authenticator {
	if clk == nil {
		clk = clock.New()
	}
	return &Authenticator{
		botSecret: []byte(botSecret),
		maxAge:    maxAge,
		clock:     clk,
	}
}

// Authenticate は initData を解析・検証し、検証済みセッションを返します
func (a *Authenticator) Authenticate(raw string) (*WebAppSession, error) {
	p, err := ParseInitData(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := p[hashKey]; !ok {
		return nil, ErrMissingSignature
	}
	if !Verify(p, a.botSecret) {
		return nil, ErrSignatureMismatch
	}

	s := &WebAppSession{Payload: p}
	if v := p["auth_date"]; v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.AuthDate = time.Unix(ts, 0)
		}
	}
	if a.maxAge > 0 {
		if s.AuthDate.IsZero() || a.clock.Now().Sub(s.AuthDate) > a.maxAge {
			return nil, ErrExpired
		}
	}
	if v := p["user"]; v != "" {
		var u WebAppUser
		// user の JSON が壊れていても署名は正しいので、ユーザー情報なしで続行します
		if err := json.Unmarshal([]byte(v), &u); err == nil {
			s.User = &u
		}
	}
	return s, nil
}
