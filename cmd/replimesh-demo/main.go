package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/replimesh/replimesh/internal/codec"
	"github.com/replimesh/replimesh/internal/sync"
	"github.com/replimesh/replimesh/internal/transport"
	"github.com/replimesh/replimesh/pkg/replimesh"
)

func main() {
	listenAddr := flag.String("listen", "127.0.0.1:7800", "address to accept a peer connection on")
	peerAddr := flag.String("peer", "", "address of a peer to dial; if empty, this process listens instead")
	flag.Parse()

	ctx := context.Background()

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share", "replimesh")
	}
	os.MkdirAll(dataDir, 0755)

	var tp transport.Transport
	if *peerAddr != "" {
		tp = transport.NewTCPDialer("replimesh-demo", *peerAddr)
	} else {
		tp = transport.NewTCPListener("replimesh-demo", *listenAddr)
	}

	cfg := sync.DefaultConfig()
	cfg.MetricsEnabled = true

	mesh, err := replimesh.New(ctx, replimesh.Options{
		DataDir:   dataDir,
		Transport: tp,
		Config:    cfg,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer mesh.Shutdown()

	fmt.Printf("replimesh started, replica %s\n", mesh.Replica())

	notes, err := mesh.Collection("notes", codec.CRDTMap)
	if err != nil {
		log.Fatal(err)
	}

	if lww, ok := notes.State.(interface {
		Set(key string, value []byte, timestamp int64)
	}); ok {
		lww.Set("greeting", []byte("hello from "+mesh.Replica().String()), time.Now().UnixMilli())
	}

	fmt.Println("replimesh running, press Ctrl+C to exit")
	select {}
}
