// Command dcs is the Download Controller Service: a per-file access-control
// and staging gateway between a cold archive, an S3 outbox, and the GHGA
// event bus. It follows the teacher's single-binary gin server in spirit,
// but splits startup into cobra subcommands (serve, consume-events,
// cleanup-outbox, migrate) the way hashmap-kz-katomik's cmd/ package does,
// since this service runs three independently deployable workloads rather
// than one HTTP listener.
package main

import (
	"log"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
