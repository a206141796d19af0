package main

import (
	"context"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/triangle/frameloop"
	"github.com/vkngwrapper/triangle/renderer"
)

func run(options renderer.Options) error {
	r, err := renderer.New(options)
	if err != nil {
		return err
	}
	defer r.Destroy()

	frameCtx, err := r.FrameContext()
	if err != nil {
		return err
	}

	loop := frameloop.New(frameCtx, frameloop.Config{
		AcquireTimeout: frameloop.NoTimeout,
		ReportInterval: 5 * time.Second,
	})

	return loop.Run(context.Background(), r.Host())
}

func main() {
	runtime.LockOSThread()

	options, err := parseArgs(os.Args[1:])
	if errors.Is(err, errHelp) {
		printUsage(os.Stdout)
		return
	} else if err != nil {
		log.Println(err)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	err = run(options)
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
