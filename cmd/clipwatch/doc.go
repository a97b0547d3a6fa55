// Command clipwatch tracks video-processing pipeline jobs: it reconciles
// push and polling updates into a local status view, detects stalled stages,
// and drives multi-step processing runs against the backend.
package main
