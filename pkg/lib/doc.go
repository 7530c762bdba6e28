// Package lib provides a Go SDK for the zimg image generation service.
//
// This package allows applications to generate images, follow the generation
// tasks and manage the generated images history without shelling out to the
// zimg CLI binary. It is useful for scripting, automation and building tools on
// top of the image service.
//
// # Quick Start
//
// Create a client, generate an image and download it:
//
//	client, err := lib.New(ctx, lib.Config{APIURL: "http://localhost:15000"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	task, err := client.Generate(ctx, lib.GenerateOpts{
//	    Prompt:      "a lighthouse on a cliff at dawn",
//	    AspectRatio: lib.AspectRatioWide,
//	    Quality:     lib.QualityBalanced,
//	    OnProgress: func(t lib.Task) {
//	        fmt.Printf("%d%% %s\n", t.Progress, t.Message)
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := client.DownloadImages(ctx, []string{task.Image.ID}, nil)
//
// # Tasks
//
// Generations are asynchronous on the service. [Client.Generate] submits the
// request and polls the task until it completes or fails. Use
// [Client.SubmitGeneration] to only submit, and [Client.GetTask] or
// [Client.WaitTask] to check on it later. A failed generation is not an error,
// the returned [Task] has [TaskStatusFailed] and its Error set.
//
// # History
//
// The generated images are paginated ([Client.ListHistory]). Batch downloads and
// deletions work on the images of one history page:
//
//	client.DownloadImages(ctx, nil, &lib.DownloadOpts{All: true, Page: 2})
//	client.DeleteImages(ctx, []string{"img-1", "img-2"}, nil)
//
// Downloads stop on the first failure, deletions try every image. Both report
// the outcome of each image in a [BatchResult].
//
// Downloaded images are recorded in a local SQLite ledger, list them with
// [Client.ListSavedImages]. Set [Config.InMemoryLedger] to keep it in memory.
//
// # System Status
//
// Get the service host utilization once with [Client.SystemStatus] or keep
// receiving it with [Client.WatchSystemStatus] until the context ends.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist (task, image).
//   - [ErrNotValid]: Invalid input (empty prompt, unknown aspect ratio...).
//
// Failures talking to the service keep their message, including the detail the
// service answered with.
//
// # Testing
//
// Point the client to any HTTP server that implements the service API and use a
// temporary data dir:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    APIURL:  srv.URL,
//	    DataDir: t.TempDir(),
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. Every
// generation is tracked independently.
package lib
