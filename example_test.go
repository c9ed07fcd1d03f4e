package feedback_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/saferoomai/feedback"
)

// Example_basic records a decision with the API unreachable and reads it
// back from a second coordinator over the same store.
func Example_basic() {
	tmpDir, err := os.MkdirTemp("", "feedback-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	opts := []feedback.Option{
		feedback.WithStorePath(tmpDir),
		feedback.WithBaseURL("http://127.0.0.1:1"),
	}

	coord, err := feedback.New("anomalies", opts...)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	ack, err := coord.RecordDecision(ctx, "a-42", feedback.Accepted, "anomaly", nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(ack.Message)

	reloaded, err := feedback.New("anomalies", opts...)
	if err != nil {
		log.Fatal(err)
	}
	d, _ := reloaded.CurrentDecision("a-42")
	fmt.Println(d)
	fmt.Printf("%.1f%%\n", reloaded.Statistics().AcceptanceRate)
	// Output:
	// recorded locally
	// accept
	// 100.0%
}
