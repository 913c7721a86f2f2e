// Command santasync asks running trackers to resynchronize their route.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/synctrigger"
)

func main() {
	url := flag.String("nats", "nats://127.0.0.1:4222", "NATS server url")
	subject := flag.String("subject", synctrigger.DefaultSubject, "sync request subject")
	reason := flag.String("reason", "manual", "reason recorded in tracker logs")
	lang := flag.String("lang", "", "switch trackers to this language")
	force := flag.Bool("force", false, "fetch the route even if the stored language matches")
	timeout := flag.Duration("timeout", 5*time.Second, "publish timeout")
	flag.Parse()

	nc, err := synctrigger.Connect(*url)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req, err := synctrigger.NewPublisher(nc, *subject).Publish(ctx, synctrigger.Request{
		Reason:   *reason,
		Language: *lang,
		Force:    *force,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Fprintf(os.Stdout, "sync request %s sent to %s\n", req.ID, *subject)
}
