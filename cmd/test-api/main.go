// Package main is a smoke-test utility that verifies the API is reachable and
// returning valid responses. It hits the health endpoint and the public
// society listing and prints the status codes and bodies, making it useful
// for quick post-deployment checks without external tooling.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	base := os.Getenv("SOCIETYHUB_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	for _, path := range []string{"/health", "/api/society"} {
		resp, err := http.Get(base + path)
		if err != nil {
			fmt.Printf("%s: error: %v\n", path, err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			fmt.Printf("%s: error reading body: %v\n", path, err)
			continue
		}
		fmt.Printf("%s: %d\n%s\n\n", path, resp.StatusCode, string(body))
	}
}
