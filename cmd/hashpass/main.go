// Команда hashpass печатает bcrypt-хеш пароля для admin.password_hash.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/magabrotheeeer/chat-relay/internal/lib/password"
)

func main() {
	var pass string
	if len(os.Args) > 1 {
		pass = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "usage: hashpass <password> or pass it on stdin")
			os.Exit(2)
		}
		pass = strings.TrimRight(line, "\r\n")
	}

	hash, err := password.GetHash(pass)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
