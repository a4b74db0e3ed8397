package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Merlicne/k8s-manager/pkg/api"
)

func main() {
	_ = godotenv.Load()

	dev := flag.Bool("dev", false, "enable development mode")
	port := flag.String("port", "", "HTTP port to listen on (overrides PORT env)")
	dbPath := flag.String("db", "", "path to the port-forward audit database (overrides DATABASE_PATH env)")
	kubeconfig := flag.String("kubeconfig", "", "path to kubeconfig (overrides KUBECONFIG env)")
	flag.Parse()

	cfg := api.LoadConfigFromEnv()
	if *dev {
		cfg.Dev = true
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *kubeconfig != "" {
		cfg.KubeconfigPath = *kubeconfig
	}

	if err := ensureDir(cfg.DatabasePath); err != nil {
		log.Fatalf("preparing database directory: %v", err)
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("building server: %v", err)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down")
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
		os.Exit(0)
	}()

	log.Printf("listening on :%s", cfg.Port)
	if err := server.Start(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
