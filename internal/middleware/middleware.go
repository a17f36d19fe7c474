package middleware

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/antonminaichev/storefront/internal/respond"
	usertypes "github.com/antonminaichev/storefront/internal/types/user"
	"github.com/antonminaichev/storefront/internal/user"

	"github.com/golang-jwt/jwt/v4"
)

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (w gzipResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

func GzipHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") == "gzip" {
			gzr, err := gzip.NewReader(r.Body)
			if err != nil {
				respond.Error(rw, http.StatusBadRequest, "failed to create gzip reader")
				return
			}
			defer gzr.Close()
			r.Body = io.NopCloser(gzr)
		}

		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			rw.Header().Set("Content-Encoding", "gzip")
			rw.Header().Del("Content-Length")
			gzw := gzip.NewWriter(rw)
			defer gzw.Close()

			gzrw := gzipResponseWriter{Writer: gzw, ResponseWriter: rw}
			next.ServeHTTP(gzrw, r)
		} else {
			next.ServeHTTP(rw, r)
		}
	})
}

type ctxKeyUserID struct{}

var (
	errNoToken     = errors.New("not authorized, login again")
	errBadToken    = errors.New("invalid or expired token")
	errNotAdmin    = errors.New("admin access required")
	errUnknownUser = errors.New("user no longer exists")
)

type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*usertypes.User, error)
}

// JWTMiddleware admits requests carrying a valid customer token whose user
// still exists, and stores the user id in the request context.
func JWTMiddleware(secret []byte, repo UserFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseClaims(r, secret)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, err.Error())
				return
			}
			u, err := repo.FindUserByID(r.Context(), claims.Subject)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, errUnknownUser.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), u.ID)))
		})
	}
}

func AdminMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseClaims(r, secret)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, err.Error())
				return
			}
			if claims.Role != user.RoleAdmin {
				respond.Error(w, http.StatusForbidden, errNotAdmin.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseClaims(r *http.Request, secret []byte) (*user.Claims, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return nil, errNoToken
	}
	tokenStr := strings.TrimPrefix(auth, "Bearer ")

	claims := &user.Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadToken
		}
		return secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, errBadToken
	}
	return claims, nil
}

func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyUserID{}).(string)
	return id
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, userID)
}
