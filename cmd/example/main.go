// Command example demonstrates standalone usage of the aivory agent:
// manual error capture, panic recovery in a goroutine, a user-tagged
// capture, a manual breakpoint snapshot, and cooperative shutdown.
// Grounded on the teacher's examples/standalone/main.go.
package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aivorynet/agent-php/pkg/agent"
)

func main() {
	err := agent.Init(
		agent.WithAPIKey("demo-key"),
		agent.WithEnvironment("development"),
		agent.WithApplicationName("example-app"),
		agent.WithDebug(true),
	)
	if err != nil {
		fmt.Printf("agent.Init failed: %v\n", err)
		return
	}
	defer agent.Shutdown()

	fmt.Println("=== Example 1: Manual Error Capture ===")
	manualErrorCapture()

	fmt.Println("\n=== Example 2: Panic Recovery in Goroutine ===")
	panicRecovery()

	fmt.Println("\n=== Example 3: Capture With User Context ===")
	captureWithUser()

	fmt.Println("\n=== Example 4: Manual Breakpoint Snapshot ===")
	agent.Breakpoint("checkout.complete")

	for i := 0; i < 3; i++ {
		agent.ProcessMessages()
		time.Sleep(50 * time.Millisecond)
	}

	fmt.Println("\nexample completed.")
}

func manualErrorCapture() {
	err := errors.New("failed to connect to external service")
	if captureErr := agent.CaptureException(err, map[string]any{
		"operation": "http_client",
	}); captureErr != nil {
		fmt.Printf("capture failed: %v\n", captureErr)
		return
	}
	fmt.Println("error captured")
}

func panicRecovery() {
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		defer agent.Recover(map[string]any{"goroutine": "worker"})

		fmt.Println("goroutine starting...")
		time.Sleep(10 * time.Millisecond)
		panic("something unexpected happened")
	}()

	wg.Wait()
	fmt.Println("goroutine completed (panic was captured)")
}

func captureWithUser() {
	agent.SetUser(agent.User{ID: "user-42", Email: "user@example.com"})
	agent.SetContext(map[string]any{"request_id": "req-123"})

	err := errors.New("input validation failed: missing required field 'email'")
	if captureErr := agent.CaptureException(err, nil); captureErr != nil {
		fmt.Printf("capture failed: %v\n", captureErr)
		return
	}
	fmt.Println("error captured with user context")
}
