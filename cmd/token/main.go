// Command token prints a signed access token for a user id. It is meant
// for local testing of the API in jwt auth mode.
//
//	go run ./cmd/token -user 7
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/facility-reservation/internal/utils"
)

func main() {
	_ = godotenv.Load()

	ttlMin, _ := strconv.Atoi(os.Getenv("ACCESS_TOKEN_TTL_MIN"))
	if ttlMin <= 0 {
		ttlMin = 60
	}

	userID := flag.Int64("user", 0, "user id to put in the sub claim")
	role := flag.String("role", "member", "role claim")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (defaults to JWT_SECRET)")
	ttl := flag.Duration("ttl", time.Duration(ttlMin)*time.Minute, "token lifetime")
	flag.Parse()

	tok, err := utils.NewAccessToken(*secret, *userID, *role, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
