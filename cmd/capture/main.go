package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"mediaserver/internal/config"
	"mediaserver/internal/logger"
	"mediaserver/internal/vision"
	"mediaserver/internal/vision/cv"
)

// capture runs one capture loop against a stream and publishes the first
// detection to a running media server.
func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	streamURL := flag.String("url", vision.DefaultStreamURL, "Video stream URL or file path")
	object := flag.String("object", "cars", "Object category to detect")
	interval := flag.Int("interval", 1, "Seconds between detection attempts")
	timeout := flag.Int("timeout", cfg.AllowedTimeout, "Run timeout in seconds")
	domain := flag.String("domain", cfg.Domain, "Base URL of the file API")
	flag.Parse()

	log := logger.NewLogger(cfg)

	camera, err := vision.NewCameraConfig(*streamURL, *interval)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	detection, err := vision.NewDetectionConfig(*object)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	publisher := vision.NewHTTPPublisher(*domain, time.Duration(cfg.PublishTimeout)*time.Second)
	components, cleanup, err := cv.Components(cfg.CascadeDir, detection, publisher)
	if err != nil {
		log.Error("Failed to load detector: %v", err)
		return 1
	}
	defer cleanup()
	components.Events = log

	log.Info("Capturing %s from %s, publishing to %s", detection.Category(), camera.StreamURL(), publisher.Endpoint())

	result := vision.NewCaptureLoop(camera, time.Duration(*timeout)*time.Second, components).Run(context.Background())

	if !result.Published() {
		fmt.Printf("%s after %d frames (%v)\n", result.State, result.Frames, result.Elapsed.Round(time.Millisecond))
		if result.Err != nil {
			fmt.Fprintln(os.Stderr, result.Err)
		}
		return 1
	}

	fmt.Println(result.Reference)
	return 0
}
