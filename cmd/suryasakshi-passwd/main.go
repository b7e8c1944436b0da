// Command suryasakshi-passwd prints an AUTH_USERS entry for one operator.
//
//	suryasakshi-passwd -user ADMIN < password.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"suryasakshi/internal/auth"
)

func main() {
	user := flag.String("user", "", "operator name")
	flag.Parse()

	name := strings.ToUpper(strings.TrimSpace(*user))
	if name == "" || strings.ContainsAny(name, ":,") {
		fmt.Fprintln(os.Stderr, "usage: suryasakshi-passwd -user NAME (password on stdin)")
		os.Exit(2)
	}

	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		fmt.Fprintf(os.Stderr, "read password: %v\n", err)
		os.Exit(1)
	}
	password = strings.TrimRight(password, "\r\n")

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s:%s\n", name, hash)
}
