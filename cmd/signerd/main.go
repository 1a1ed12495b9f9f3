/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/johanstenstam/signerd/signer"
)

var (
	cfgFile    string
	debugMode  bool
	showHelp   bool
)

func init() {
	flag.StringVarP(&cfgFile, "config", "c", signer.DefaultCfgFile, "configuration file")
	flag.BoolVarP(&debugMode, "debug", "d", false, "debug flag; has no effect on logging or process mode")
	flag.BoolVarP(&showHelp, "help", "h", false, "show usage")
}

func main() {
	flag.Parse()
	if showHelp {
		flag.Usage()
		return
	}

	conf, err := ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("signerd: configuration error: %v", err)
	}

	if err := signer.SetupLogging(conf.Log.File); err != nil {
		log.Fatalf("signerd: logging setup failed: %v", err)
	}

	engine := signer.NewEngine(conf.toEngineConfig(cfgFile))

	if _, err := engine.ReadZoneList(); err != nil {
		log.Fatalf("signerd: initial zone list load failed: %v", err)
	}

	if err := engine.Start(); err != nil {
		log.Fatalf("signerd: engine start failed: %v", err)
	}

	log.Printf("signerd: %s started, %d workers, socket %s", conf.Service.Name,
		conf.Service.NumWorkers, conf.Signing.SocketPath)

	mainloop(engine, conf, cfgFile)
}

// mainloop blocks until the engine is asked to stop, dispatching
// SIGINT/SIGTERM to a clean shutdown and SIGHUP to a full reload, in
// the shape of the teacher's tdnsd mainloop.
func mainloop(engine *signer.Engine, conf *Config, cfgFile string) {
	exit := make(chan os.Signal, 1)
	hup := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	signal.Notify(hup, syscall.SIGHUP)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			select {
			case sig := <-exit:
				fmt.Printf("signerd: received signal %v, shutting down\n", sig)
				engine.Stop()
				return

			case <-hup:
				log.Printf("signerd: received SIGHUP, reloading")
				engine.Stop()

				newConf, err := ParseConfig(cfgFile)
				if err != nil {
					log.Fatalf("signerd: reload: configuration error: %v", err)
				}
				conf = newConf

				engine = signer.NewEngine(conf.toEngineConfig(cfgFile))
				if _, err := engine.ReadZoneList(); err != nil {
					log.Fatalf("signerd: reload: zone list load failed: %v", err)
				}
				if err := engine.Start(); err != nil {
					log.Fatalf("signerd: reload: engine start failed: %v", err)
				}
				log.Printf("signerd: reload complete")
			}
		}
	}()

	wg.Wait()
}
