package main

import (
	"context"
	"os"
	"testing"
	"time"

	"finboard/internal/config"

	"github.com/charmbracelet/ssh"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	restore := stubSSHDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func TestAuthorize(t *testing.T) {
	if !authorize(nil, "bob", "SHA256:any") {
		t.Fatal("expected open access without configured fingerprints")
	}
	allowed := map[string]bool{"SHA256:good": true}
	if !authorize(allowed, "bob", "SHA256:good") {
		t.Fatal("expected listed fingerprint to be accepted")
	}
	if authorize(allowed, "bob", "SHA256:bad") {
		t.Fatal("expected unlisted fingerprint to be denied")
	}
}

func stubSSHDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origLoadSources := loadSourcesFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewWishServer := newWishServerFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			RedisURL:       "",
			SSHPort:        2222,
			SSHHostKeyPath: ".ssh/test_key",
		}
	}
	loadSourcesFunc = func(string) (*config.Sources, error) { return config.DefaultSources(), nil }
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newWishServerFunc = func(ops ...ssh.Option) (*ssh.Server, error) {
		return nil, nil
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		loadSourcesFunc = origLoadSources
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newWishServerFunc = origNewWishServer
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
	}
}
