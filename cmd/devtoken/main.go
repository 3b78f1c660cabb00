// devtoken prints a signed operator token for local testing.
// Usage: JWT_SECRET=... go run ./cmd/devtoken -username ana -rol supervisor
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/config"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/middleware"

	"github.com/google/uuid"
)

func main() {
	username := flag.String("username", "cajero1", "nombre del operador")
	rol := flag.String("rol", middleware.RolCajero, "cajero | supervisor | administrador")
	id := flag.String("id", "", "UUID del operador (aleatorio si se omite)")
	ttl := flag.Duration("ttl", 12*time.Hour, "vigencia del token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	userID := uuid.New()
	if *id != "" {
		if userID, err = uuid.Parse(*id); err != nil {
			fmt.Fprintf(os.Stderr, "id invalido: %v\n", err)
			os.Exit(1)
		}
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, userID, *username, *rol, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
