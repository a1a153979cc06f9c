package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/firmata.go/pkg/bridge"
	"github.com/robotalks/firmata.go/pkg/bridge/mqtt"
	"github.com/robotalks/firmata.go/pkg/env"
	"github.com/robotalks/firmata.go/pkg/framework"
)

func init() {
	env.SetupFlags()
	env.SetupMQTTFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.NewConfig()
	id := conf.BoardID()
	q, err := mqtt.NewQueueFromURL(conf.MQTTBrokerURL, &mqtt.Will{
		Topic:   id + "/" + bridge.TopicStatus,
		Payload: bridge.StatusOffline,
	})
	if err != nil {
		glog.Exit(err)
	}

	board := conf.MustOpenBoard()
	defer board.Close()
	if err := board.QueryFirmware(); err != nil {
		glog.Exit(err)
	}

	br := bridge.New(id, board, q)
	loop := framework.NewLoop().Add(br)
	if err := q.Connect(); err != nil {
		glog.Exitf("connect %s: %v", conf.MQTTBrokerURL, err)
	}
	defer q.Close()
	if err := br.Start(); err != nil {
		glog.Exit(err)
	}
	glog.Infof("bridging %s as %s", board.Name, id)

	err = framework.NewRunner().HandleSignals().Go(framework.NamedRun("loop", loop)).Wait()
	if serr := br.Stop(); serr != nil {
		glog.Warning(serr)
	}
	if err != nil {
		glog.Exit(err)
	}
}
