package main

import (
	"flag"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/artyom/autoflags"
	"github.com/rcproxy-io/rcproxy/proxy"
	log "github.com/ngaut/logging"
)

var config = struct {
	//flag:"flagName,usage string"
	Addr                   string        `flag:"addr, proxy serving addr"`
	DebugAddr              string        `flag:"debug-addr, proxy debug listen address for pprof and set log level, default not enabled"`
	StartupNodes           string        `flag:"startup-nodes, startup nodes used to query cluster topology"`
	ConnectTimeout         time.Duration `flag:"connect-timeout, connect to backend timeout"`
	SlotsReloadInterval    time.Duration `flag:"slots-reload-interval, slots reload interval"`
	LogLevel               string        `flag:"log-level, log level eg. debug, info, warn, error, fatal and panic"`
	LogFile                string        `flag:"log-file, log file path"`
	LogEveryN              int           `flag:"log-every-n, output an access log for every N connections"`
	BackendIdleConnections int           `flag:"backend-idle-connections, max number of idle connections for each backend server"`
	ConnectionsPerBackend  int           `flag:"connections-per-backend, number of pipelined TCP connections kept open to each backend"`
	RequirePass            string        `flag:"requirepass, if set, clients must AUTH with this password before issuing any other command"`
}{
	Addr:                   "0.0.0.0:8088",
	DebugAddr:              "",
	StartupNodes:           "127.0.0.1:7001",
	ConnectTimeout:         250 * time.Millisecond,
	SlotsReloadInterval:    3 * time.Second,
	LogLevel:               "info",
	LogFile:                "rcproxy.log",
	LogEveryN:              100,
	BackendIdleConnections: 5,
	ConnectionsPerBackend:  1,
}

func handleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	level := r.Form.Get("level")
	log.SetLevelByString(level)
	log.Info("set log level to ", level)
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte("OK"))
}

func main() {
	autoflags.Define(&config)
	flag.Parse()
	log.SetLevelByString(config.LogLevel)
	// to avoid pprof being optimized by gofmt
	log.Debug(pprof.Handler("profile"))
	if len(config.LogFile) != 0 {
		log.SetOutputByName(config.LogFile)
		log.SetRotateByDay()
	}
	if config.LogEveryN <= 0 {
		proxy.LogEveryN = 1
	} else {
		proxy.LogEveryN = uint32(config.LogEveryN)
	}
	log.Infof("%#v", config)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, os.Kill)

	log.Infof("pid %d", os.Getpid())
	if len(config.DebugAddr) != 0 {
		http.HandleFunc("/setloglevel", handleSetLogLevel)
		go func() {
			log.Fatal(http.ListenAndServe(config.DebugAddr, nil))
		}()
		log.Infof("debug service listens on %s", config.DebugAddr)
	}

	// shuffle startup nodes so repeated restarts don't all hammer the same
	// node first while it's still warming up
	startupNodes := strings.Split(config.StartupNodes, ",")
	indexes := rand.Perm(len(startupNodes))
	for i, startupNode := range startupNodes {
		startupNodes[i] = startupNodes[indexes[i]]
		startupNodes[indexes[i]] = startupNode
	}

	stats := proxy.NewStatsVersioner()
	connPool := proxy.NewConnPool(config.BackendIdleConnections, config.ConnectTimeout)
	slotTable := proxy.NewSlotTable(proxy.ReadMasterIfNoReplica, "", nil, stats)
	dispatcher := proxy.NewDispatcher(startupNodes, config.SlotsReloadInterval, connPool, config.ConnectionsPerBackend, slotTable, stats)
	if err := dispatcher.InitSlotTable(); err != nil {
		log.Fatal(err)
	}

	clusterPool := proxy.NewClusterServerPool("cluster", slotTable)
	routeMap := proxy.NewRouteMap(
		[]proxy.RouteEntry{{PrefixKey: "*", WritePool: clusterPool, ReadPool: clusterPool}},
		[]*proxy.ServerPool{clusterPool},
	)
	routeHandle := proxy.NewRouteMapHandle(routeMap)

	auxiliary := proxy.NewAuxiliaryController(proxy.StaticConfSource{}, routeHandle, stats)
	auxiliary.Run()

	authority := proxy.NewAuthority()
	if config.RequirePass != "" {
		authority.AddUser("default", config.RequirePass, nil)
	}

	p := proxy.NewProxy(config.Addr, dispatcher, connPool, routeHandle, authority)
	go p.Run()
	sig := <-sigChan
	log.Infof("terminated by %#v", sig)
	auxiliary.Stop()
	p.Exit()
}
