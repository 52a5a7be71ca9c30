package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/openrover/soilbox/pkg/actuate"
	"github.com/openrover/soilbox/pkg/adc"
	"github.com/openrover/soilbox/pkg/config"
	"github.com/openrover/soilbox/pkg/npk"
	"github.com/openrover/soilbox/pkg/record"
	"github.com/openrover/soilbox/pkg/station"
	"github.com/openrover/soilbox/pkg/store"
	"github.com/openrover/soilbox/pkg/telemetry"
)

// CLI args
var (
	configPath = flag.String("config", "soilbox.yaml", "path to the configuration file")
	mock       = flag.Bool("mock", false, "simulate the MCU bridge instead of opening the serial port")
	skipWarmup = flag.Bool("skip-warmup", false, "skip the heater warm-up wait (bench use only)")
	listenAddr = flag.String("listen-address", "", "expose Prometheus metrics on this address (overrides config)")
)

// metrics to expose to Prometheus
var (
	gaugeGas = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "soilbox_gas_ppm",
			Help: "Smoothed gas concentration (units: ppm)",
		},
		[]string{"sensor"},
	)
	gaugeEnv = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "soilbox_environment",
			Help: "Environmental snapshot (unit depends on sensor)",
		},
		[]string{"sensor"},
	)
)

func init() {
	prometheus.MustRegister(gaugeGas)
	prometheus.MustRegister(gaugeEnv)

	// logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	var (
		src adc.Source
		env telemetry.Provider
	)

	if *mock {
		m := adc.NewMock(&cfg.Mock)
		src, env = m, m
		log.Info("Using mocked MCU bridge")
	} else {
		bridge := adc.NewBridge(cfg.Serial.Port, cfg.Serial.BaudRate)
		if err := bridge.Connect(); err != nil {
			return err
		}
		defer bridge.Close()
		src, env = bridge, bridge
		log.Infof("Connected to MCU on %s", cfg.Serial.Port)
	}

	// Soil collection runs before any gas polling so motor noise and dust
	// never overlap a measurement.
	if cfg.Actuation.Enabled {
		if drv, ok := src.(actuate.Driver); ok {
			ctl := actuate.NewController(drv, nil)
			if err := ctl.AllOff(); err != nil {
				return err
			}
			if err := actuate.NewCollection(ctl, cfg.Actuation).Run(); err != nil {
				log.Errorf("Soil collection failed: %v", err)
			}
		}
	}

	mgr := station.New(cfg, src, env)

	if !*skipWarmup && !*mock {
		warmup(cfg.Calibration.Warmup)
	}

	mgr.CalibrateAll()

	writer, err := record.NewWriter(os.Stdout, true)
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.Storage.Enabled {
		if st, err = store.Open(cfg.Storage.Path, cfg.Site); err != nil {
			return err
		}
		defer st.Close()
		log.Infof("Logging readings to %s (session %d)", cfg.Storage.Path, st.Session())
	}

	listen := cfg.Metrics.Listen
	if *listenAddr != "" {
		listen = *listenAddr
	}
	if listen != "" {
		go func() {
			// Expose the registered metrics via HTTP.
			http.Handle("/metrics", promhttp.Handler())
			log.Panic(http.ListenAndServe(listen, nil))
		}()
		log.Infof("Serving metrics on %s", listen)
	}

	var soil *npk.Client
	if cfg.NPK.Enabled {
		client, closePort, err := npk.Open(cfg.NPK.Port, cfg.NPK.BaudRate, cfg.NPK.SlaveID)
		if err != nil {
			log.Errorf("NPK sensor unavailable: %v", err)
		} else {
			soil = client
			defer closePort()
			log.Infof("NPK sensor on %s", cfg.NPK.Port)
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Poll.Interval)
	defer ticker.Stop()

	log.Infof("Polling every %s", cfg.Poll.Interval)

	for {
		select {
		case <-stop:
			log.Info("Shutting down")
			return nil
		case <-ticker.C:
			records, err := mgr.Tick()
			if err != nil {
				// Losing the environmental sensor is the one fault worth
				// halting for; everything else degrades in-stream.
				return err
			}

			for _, r := range records {
				if err := writer.Write(r); err != nil {
					return err
				}
				if st != nil {
					if err := st.Append(r); err != nil {
						log.Errorf("Failed to store reading: %v", err)
					}
				}
				export(r)
			}

			if soil != nil {
				logSoil(soil)
			}
		}
	}
}

func export(r record.Record) {
	if r.Unit == "ppm" {
		gaugeGas.WithLabelValues(r.Sensor).Set(float64(r.Value))
		return
	}
	gaugeEnv.WithLabelValues(r.Sensor).Set(float64(r.Value))
}

func logSoil(soil *npk.Client) {
	reading, err := soil.Read()
	switch {
	case err != nil:
		log.Warnf("NPK read failed: %v", err)
	case !reading.Plausible():
		log.Warnf("NPK reading out of range: %+v", reading)
	default:
		log.Infof("Soil: %.1f%% moisture, %.1fC, %d uS/cm, pH %.1f, N %d P %d K %d mg/kg",
			reading.Moisture, reading.Temperature, reading.Conductivity, reading.PH,
			reading.Nitrogen, reading.Phosphorus, reading.Potassium)
	}
}

func warmup(d time.Duration) {
	log.Infof("Warming gas sensors (%s)...", d)
	for i := int(d.Seconds()); i > 0; i-- {
		if i%10 == 0 {
			log.Infof("  %ds remaining...", i)
		}
		time.Sleep(time.Second)
	}
	log.Info("Warmup complete")
}
