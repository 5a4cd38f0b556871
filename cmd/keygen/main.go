package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
)

// keygen prints a random value for mailbox.encryption_key or for the
// HALLMAIL_MAILBOX_ENCRYPTION_KEY environment variable
func main() {
	size := flag.Int("bytes", 32, "number of random bytes")
	flag.Parse()

	key := make([]byte, *size)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("Unable to generate key: %v", err)
	}
	fmt.Println(base64.RawStdEncoding.EncodeToString(key))
}
