package session

import (
	"net/http"
	"time"

	ginsessions "github.com/gin-contrib/sessions"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
)

// Store はKVを背後に持つ gin-contrib/sessions 互換のセッションストアです。
// クッキーには署名付きのセッションIDだけを載せ、セッション本体はサーバー側の
// KVが正となります。
type Store struct {
	kv      KV
	codecs  []securecookie.Codec
	options *gsessions.Options
}

// NewStore は Store を作成します。keyPairs はクッキー署名鍵です。
func NewStore(kv KV, keyPairs ...[]byte) *Store {
	return &Store{
		kv:     kv,
		codecs: securecookie.CodecsFromPairs(keyPairs...),
		options: &gsessions.Options{
			Path:   "/",
			MaxAge: 86400,
		},
	}
}

// Options はクッキー属性を設定します（gin-contrib/sessions.Store の要求）。
func (s *Store) Options(options ginsessions.Options) {
	s.options = options.ToGorillaOptions()
}

// Get は登録済みのセッションを返します（gorilla/sessions.Store の要求）。
func (s *Store) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New はクッキーのセッションIDからKVの内容を復元します。
// クッキーが無い・署名が不正・レコードが無い場合は空の新規セッションを返します。
func (s *Store) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, cookie.Value, &id, s.codecs...); err != nil {
		return session, nil
	}
	session.ID = id

	data, err := s.kv.Get(r.Context(), id)
	if err != nil {
		return session, err
	}
	if data == nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, string(data), &session.Values, s.codecs...); err != nil {
		// 復号できないレコードは新規セッションとして扱う
		return session, nil
	}
	session.IsNew = false
	return session, nil
}

// Save はセッションをKVへ書き込み、IDをクッキーに載せます。
// MaxAge <= 0 の場合はサーバー側レコードごと破棄します。
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	if session.Options.MaxAge <= 0 {
		if session.ID != "" {
			if err := s.kv.Delete(r.Context(), session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.Values, s.codecs...)
	if err != nil {
		return err
	}
	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if err := s.kv.Set(r.Context(), session.ID, []byte(encoded), ttl); err != nil {
		return err
	}

	idValue, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), idValue, session.Options))
	return nil
}
