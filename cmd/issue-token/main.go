// Команда issue-token выпускает токен доступа для существующего пользователя.
// Используется, чтобы получить первый токен администратора, созданного миграцией.
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/issue-token -email admin@localhost
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/magabrotheeeer/course-access/internal/config"
	"github.com/magabrotheeeer/course-access/internal/lib/jwt"
	"github.com/magabrotheeeer/course-access/internal/lib/logger"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/storage/repository"
)

func main() {
	email := flag.String("email", "admin@localhost", "email of the user to issue a token for")
	flag.Parse()

	cfg := config.MustLoad()
	log := logger.New(cfg.Env, os.Stderr)

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		log.Error("failed to connect storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.DB.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := db.GetUserByEmail(ctx, *email)
	if err != nil {
		log.Error("failed to find user", sl.Err(err))
		os.Exit(1)
	}

	token, err := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL).GenerateToken(user.UUID, string(user.Role))
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		os.Exit(1)
	}
	fmt.Println(token)
}
