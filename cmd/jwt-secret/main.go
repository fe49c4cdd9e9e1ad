package main

import (
	"flag"
	"log"
	"os"

	"github.com/louisbranch/orion/internal/tools/jwtsecret"
)

func main() {
	cfg, err := jwtsecret.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	if err := jwtsecret.Run(cfg, os.Stdout, nil); err != nil {
		log.Fatalf("generate secret: %v", err)
	}
}
