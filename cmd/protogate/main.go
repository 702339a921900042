// Command protogate runs the HTTP gateway in front of the backend services and
// inspects the operation tables it relays with.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
