// Command token issues bearer tokens for local development and operations.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/pkg/config"
	"github.com/esetaro2/progresso-backend-sub000/pkg/jwt"
)

func main() {
	userID := flag.String("user", "admin", "user id the token is issued for")
	role := flag.String("role", string(domain.RoleAdmin), "role claim (ADMIN|PROJECT_MANAGER|TEAM_MEMBER)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadTokenConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	r := domain.Role(strings.ToUpper(strings.TrimSpace(*role)))
	if !r.Valid() {
		slog.Error("unknown role", "role", *role)
		os.Exit(1)
	}
	token, err := jwt.GenerateToken(strings.TrimSpace(*userID), string(r), cfg.JWTIssuer, cfg.JWTSecret, *ttl)
	if err != nil {
		slog.Error("failed to sign token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
