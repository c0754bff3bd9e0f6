// Seeds the simulation model library with a few sample assets so a fresh
// install can serve plausible results without a provider credential.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gen3d-backend/cmd"

	"github.com/caarlos0/env/v11"
	"github.com/go-resty/resty/v2"
	"github.com/schollz/progressbar/v3"
)

type Config struct {
	Root       string `env:"ROOT" envDefault:"./gen3d"`
	LibraryDir string `env:"MODEL_LIBRARY_DIR" envDefault:""`
}

const sampleBase = "https://raw.githubusercontent.com/KhronosGroup/glTF-Sample-Assets/main/Models"

var sampleModels = map[string]string{
	"duck.glb":    sampleBase + "/Duck/glTF-Binary/Duck.glb",
	"avocado.glb": sampleBase + "/Avocado/glTF-Binary/Avocado.glb",
	"fox.glb":     sampleBase + "/Fox/glTF-Binary/Fox.glb",
	"lantern.glb": sampleBase + "/Lantern/glTF-Binary/Lantern.glb",
}

func download(client *resty.Client, url, dest string) error {
	res, err := client.R().
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return err
	}
	defer res.RawBody().Close()

	if !res.IsSuccess() {
		return fmt.Errorf("unexpected status %d", res.StatusCode())
	}

	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()

	bar := progressbar.DefaultBytes(res.RawResponse.ContentLength, filepath.Base(dest))
	if _, err := io.Copy(io.MultiWriter(file, bar), res.RawBody()); err != nil {
		os.Remove(dest)
		return err
	}

	return nil
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	if cfg.LibraryDir == "" {
		cfg.LibraryDir = filepath.Join(cfg.Root, "library")
	}
	if err := os.MkdirAll(cfg.LibraryDir, os.ModePerm); err != nil {
		log.Fatalf("error creating model library directory: %v", err)
	}

	client := resty.New()
	for name, url := range sampleModels {
		dest := filepath.Join(cfg.LibraryDir, name)
		if _, err := os.Stat(dest); err == nil {
			log.Printf("%s already present, skipping", name)
			continue
		}

		log.Printf("downloading %s", name)
		if err := download(client, url, dest); err != nil {
			log.Fatalf("failed to download %s: %v", name, err)
		}
	}

	log.Printf("model library seeded at %s", cfg.LibraryDir)
}
