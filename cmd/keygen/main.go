// Command keygen issues a signed admin token for a user. The secret must
// match the server's --jwt-secret and the mail must be in --allowed-users.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tinypath/tinypath/internal/auth"
)

func main() {
	secret := flag.String("secret", "", "signing secret, must match the server")
	mail := flag.String("mail", "", "mail address of the user")
	ttl := flag.Duration("ttl", 365*24*time.Hour, "token lifetime")
	flag.Parse()

	if *secret == "" || *mail == "" {
		fmt.Fprintln(os.Stderr, "usage: keygen -secret <secret> -mail <mail> [-ttl <duration>]")
		os.Exit(2)
	}

	token, err := auth.IssueToken(*secret, *mail, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to issue token:", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
