package secrets_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lone-faerie/thermo/config/secrets"
)

func Example() {
	// Setup secret file for testing
	dir, err := os.MkdirTemp("", "secrets")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	secrets.Dir = dir

	err = os.WriteFile(filepath.Join(dir, "foo"), []byte("Hello, world!"), 0600)
	if err != nil {
		log.Fatal(err)
	}

	// Get secret
	s, ok := secrets.CutPrefix("!secret foo")
	if !ok {
		log.Fatal(s, " is not a secret")
	}
	secret, err := secrets.Read(s)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(secret)
	// Output: Hello, world!
}
