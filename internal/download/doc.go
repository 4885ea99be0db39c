// Package download coordinates the full download of a media playlist:
// it runs a bounded worker pool over the playlist's segments, fetches
// and decrypts each one, and hands the plaintext to an in-order writer
// that appends contiguous runs to the output file.
//
// The Manager is the entry point. It owns the per-segment result table,
// enforces the segment state machine, and reports progress through an
// optional callback:
//
//	mgr := download.NewManager(settings, fetcher, keys, func(e download.ProgressEvent) {
//		fmt.Println(e.Message)
//	})
//	report, err := mgr.Run(ctx, media, "out.ts")
//
// By default the first segment failure aborts the job. With
// Settings.BestEffort the failed segment is replaced by a zero-length
// placeholder and the job continues; the skipped indices are listed in
// the final Report.
package download
