package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/janelia-flyem/segeval/core"

	"github.com/golang-jwt/jwt/v4"
	"github.com/zenazn/goji/web"
)

// authConfig holds the secret used to sign tokens and an optional file of
// authorized users.
type authConfig struct {
	SecretKey string `toml:"secret_key"`
	AuthFile  string `toml:"auth_file"`
}

// GenerateJWT returns a signed token for the user that expires after the given
// duration, or never if expiration is zero.
func GenerateJWT(secretKey, user string, expiration time.Duration) (string, error) {
	if secretKey == "" {
		return "", fmt.Errorf("no secret key available for JWT signing")
	}
	claims := jwt.MapClaims{"user": user}
	if expiration > 0 {
		claims["exp"] = time.Now().Add(expiration).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("error with JWT signing: %v", err)
	}
	return tokenString, nil
}

// loadAuthFile reads a JSON object mapping user names, or "*" for anyone, to
// "read", "write" or "readwrite".
func loadAuthFile(filename string) (map[string]string, error) {
	if filename == "" {
		core.Infof("No authorization file given.  Any valid token is authorized.\n")
		return nil, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var users map[string]string
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("bad authorization file %q: %v", filename, err)
	}
	core.Infof("Loaded %d authorized users from %s\n", len(users), filename)
	return users, nil
}

// isAuthorized returns true if the user may make a request with the method.
// Without an authorization list every user is allowed.
func (s *Server) isAuthorized(user string, httpMethod string) bool {
	if s.authorizedUsers == nil {
		return true
	}
	method := strings.ToLower(httpMethod)
	readReq := method == "get" || method == "head"
	priv, found := s.authorizedUsers[user]
	if !found {
		priv, found = s.authorizedUsers["*"]
		if !found {
			return false
		}
	}
	switch priv {
	case "readwrite":
		return true
	case "read":
		return readReq
	case "write":
		return !readReq
	default:
		core.Errorf("Authorized user %q has unparsable privilege %q\n", user, priv)
		return false
	}
}

// requireJWT is middleware that validates a bearer JWT and sets c.Env["user"] to
// the authenticated user.  It passes everything through if no secret is configured.
func (s *Server) requireJWT(c *web.C, h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if s.config.Auth.SecretKey == "" {
			h.ServeHTTP(w, r)
			return
		}
		reqToken := r.Header.Get("Authorization")
		if len(reqToken) == 0 {
			Unauthorized(w, r, "JWT required via Authorization in request header")
			return
		}
		splitToken := strings.Split(reqToken, "Bearer")
		if len(splitToken) != 2 || len(strings.TrimSpace(splitToken[1])) == 0 {
			Unauthorized(w, r, "bearer not in proper format")
			return
		}
		reqToken = strings.TrimSpace(splitToken[1])
		token, err := jwt.Parse(reqToken, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("error signing method: %v", token.Header["alg"])
			}
			return []byte(s.config.Auth.SecretKey), nil
		})
		if err != nil {
			Unauthorized(w, r, "error parsing JWT: %v", err)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			Unauthorized(w, r, "failed authorization")
			return
		}
		user, ok := claims["user"].(string)
		if !ok {
			Unauthorized(w, r, "user %v is not a simple string", claims["user"])
			return
		}
		if !s.isAuthorized(user, r.Method) {
			Unauthorized(w, r, "user %q is not authorized", user)
			return
		}
		if c.Env == nil {
			c.Env = make(map[interface{}]interface{})
		}
		c.Env["user"] = user
		h.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}
