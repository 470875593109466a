package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/annel0/blockverse/internal/auth"
)

// hashpw печатает bcrypt-хэш для admin.password_hash и, по запросу,
// случайный admin.jwt_secret
func main() {
	secret := flag.Bool("secret", false, "также сгенерировать jwt_secret")
	flag.Parse()

	password := flag.Arg(0)
	if password == "" {
		fmt.Fprint(os.Stderr, "Пароль: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("❌ Чтение пароля: %v", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		log.Fatal("❌ Пустой пароль")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Printf("password_hash: %q\n", hash)

	if *secret {
		s, err := auth.GenerateSecret()
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Printf("jwt_secret: %q\n", s)
	}
}
