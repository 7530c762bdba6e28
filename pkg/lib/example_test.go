package lib_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"time"

	"github.com/slok/zimg/internal/backend/fake"
	"github.com/slok/zimg/pkg/lib"
)

// newExampleService returns an in-memory image service with predictable IDs.
func newExampleService() *httptest.Server {
	n := 0
	b, err := fake.NewBackend(fake.BackendConfig{
		IDGenerator: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	if err != nil {
		panic(err)
	}
	return httptest.NewServer(b)
}

// This example shows how to generate an image and wait for it.
func Example_generate() {
	ctx := context.Background()

	srv := newExampleService()
	defer srv.Close()

	dir, err := os.MkdirTemp("", "zimg-example-generate-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	client, err := lib.New(ctx, lib.Config{
		APIURL:       srv.URL,
		DataDir:      dir,
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	task, err := client.Generate(ctx, lib.GenerateOpts{
		Prompt:      "a red fox in the snow",
		AspectRatio: lib.AspectRatioWide,
		Quality:     lib.QualityFast,
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Task %s: %s\n", task.ID, task.Status)
	fmt.Printf("Image %s: %dx%d, %d steps\n", task.Image.ID, task.Image.Width, task.Image.Height, task.Image.Steps)

	// Output:
	// Task id-1: completed
	// Image id-2: 1024x576, 4 steps
}

// This example shows how to browse the history, download and delete images.
func Example_history() {
	ctx := context.Background()

	srv := newExampleService()
	defer srv.Close()

	dir, err := os.MkdirTemp("", "zimg-example-history-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	client, err := lib.New(ctx, lib.Config{
		APIURL:       srv.URL,
		DataDir:      dir,
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	for _, prompt := range []string{"a lighthouse", "a harbour"} {
		if _, err := client.Generate(ctx, lib.GenerateOpts{Prompt: prompt, Quality: lib.QualityFast}); err != nil {
			panic(err)
		}
	}

	page, err := client.ListHistory(ctx, 1, 0)
	if err != nil {
		panic(err)
	}
	for _, img := range page.Images {
		fmt.Printf("%s: %s\n", img.ID, img.Prompt)
	}

	// Download the whole page.
	res, err := client.DownloadImages(ctx, nil, &lib.DownloadOpts{All: true})
	if err != nil {
		panic(err)
	}
	fmt.Printf("Downloaded: %v\n", res.Succeeded)

	// Delete one image, unknown ids are skipped.
	res, err = client.DeleteImages(ctx, []string{"id-2", "unknown"}, nil)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Deleted: %v, skipped: %v\n", res.Succeeded, res.Skipped)

	saved, err := client.ListSavedImages(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Saved locally: %d\n", len(saved))

	// Output:
	// id-4: a harbour
	// id-2: a lighthouse
	// Downloaded: [id-4 id-2]
	// Deleted: [id-2], skipped: [unknown]
	// Saved locally: 2
}

// This example shows how to check for specific errors using errors.Is.
func Example_errorHandling() {
	ctx := context.Background()

	srv := newExampleService()
	defer srv.Close()

	dir, err := os.MkdirTemp("", "zimg-example-errors-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	client, err := lib.New(ctx, lib.Config{APIURL: srv.URL, DataDir: dir, InMemoryLedger: true})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	_, err = client.GetTask(ctx, "nonexistent")
	if errors.Is(err, lib.ErrNotFound) {
		fmt.Println("task not found")
	}

	_, err = client.LatestImage(ctx)
	if errors.Is(err, lib.ErrNotFound) {
		fmt.Println("no images yet")
	}

	_, err = client.Generate(ctx, lib.GenerateOpts{Prompt: ""})
	if errors.Is(err, lib.ErrNotValid) {
		fmt.Println("prompt required")
	}

	// Output:
	// task not found
	// no images yet
	// prompt required
}
