package devapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-admin-session/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type accessClaims struct {
	UserID int64
	JTI    string
	Exp    time.Time
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
			writeJSONError(w, "invalid data", http.StatusBadRequest)
			return
		}

		account, err := s.accounts.GetByEmail(strings.TrimSpace(req.Email))
		if err != nil {
			writeJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		if !account.CheckPassword(req.Password) {
			writeJSONError(w, "invalid password", http.StatusUnauthorized)
			return
		}
		if !account.Active {
			writeJSONError(w, "user deactivated", http.StatusForbidden)
			return
		}

		access, err := s.issueAccessToken(account.ID)
		if err != nil {
			writeJSONError(w, "failed to log in", http.StatusInternalServerError)
			return
		}

		if s.legacySingleToken {
			writeJSON(w, http.StatusOK, map[string]any{
				"message": "login successful",
				"token":   access,
				"user":    account.Profile,
			})
			return
		}

		refresh, err := s.refresh.Create(account.ID)
		if err != nil {
			writeJSONError(w, "failed to log in", http.StatusInternalServerError)
			return
		}
		s.logger.Debug().Int64("user_id", account.ID).Msg("devapi login")
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "login successful",
			"tokens":  tokenPair{AccessToken: access, RefreshToken: refresh},
			"user":    account.Profile,
		})
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid data", http.StatusBadRequest)
			return
		}
		if err := users.ValidateRegistration(req.Name, req.Email, req.Password); err != nil {
			writeJSONErrorDetails(w, "invalid data", err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := s.accounts.GetByEmail(req.Email); err == nil {
			writeJSONError(w, "email already registered", http.StatusConflict)
			return
		}

		profile, err := s.AddAccount(strings.TrimSpace(req.Name), req.Email, req.Password, users.PlanFree)
		if err != nil {
			writeJSONError(w, "failed to register user", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "user registered",
			"user":    profile,
		})
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d := time.Duration(s.refreshDelay.Load()); d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		if status := int(s.refreshStatus.Load()); status != 0 {
			writeJSONError(w, "refresh rejected", status)
			return
		}

		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeJSONError(w, "refresh_token is required", http.StatusBadRequest)
			return
		}

		userID, next, err := s.refresh.Rotate(req.RefreshToken)
		if err != nil {
			writeJSONError(w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		access, err := s.issueAccessToken(userID)
		if err != nil {
			writeJSONError(w, "failed to refresh token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "token refreshed",
			"tokens":  tokenPair{AccessToken: access, RefreshToken: next},
		})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if claims, err := s.parseAccessToken(raw); err == nil {
			s.revoked.Add(claims.JTI, claims.Exp)
			s.refresh.DeleteForUser(claims.UserID)
		}
		s.revoked.Cleanup(s.nowFunc())
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := s.accounts.GetByID(userIDFrom(r.Context()))
		if err != nil {
			writeJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": account.Profile})
	}
}

func (s *Server) issueAccessToken(userID int64) (string, error) {
	now := s.nowFunc()
	exp := now.Add(s.accessTTL)
	jti := uuid.NewString()

	signed, err := s.signer.Sign(jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"jti": jti,
	})
	if err != nil {
		return "", err
	}
	s.revoked.Issued(jti, exp)
	return signed, nil
}

func (s *Server) parseAccessToken(raw string) (*accessClaims, error) {
	claims, err := s.signer.Verify(raw, s.nowFunc)
	if err != nil {
		return nil, err
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid subject %q", sub)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	jti, _ := claims["jti"].(string)
	return &accessClaims{UserID: userID, JTI: jti, Exp: exp.Time}, nil
}

func (s *Server) verifyAccessToken(raw string) (int64, error) {
	claims, err := s.parseAccessToken(raw)
	if err != nil {
		return 0, err
	}
	if claims.JTI == "" || s.revoked.IsRevoked(claims.JTI) {
		return 0, errors.New("token revoked")
	}
	return claims.UserID, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSONErrorDetails(w http.ResponseWriter, message, details string, status int) {
	writeJSON(w, status, map[string]string{"error": message, "details": details})
}
