package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/robotalks/firmata.go/pkg/bridge"
	"github.com/robotalks/firmata.go/pkg/bridge/mqtt"
	"github.com/robotalks/firmata.go/pkg/env"
	"github.com/robotalks/firmata.go/pkg/framework"
)

func init() {
	env.SetupMQTTFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(env.Default().MQTTBrokerURL, nil)
	if err != nil {
		log.Fatalln(err)
	}
	if _, err := q.Subscribe("#", func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+bridge.TopicStatus) || strings.Contains(topic, "/"+bridge.TopicCommand) {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		out, err := bridge.EventJSON(payload)
		if err != nil {
			log.Printf("%s: bad event: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, out)
	}); err != nil {
		log.Fatalln(err)
	}
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	runner := framework.NewRunner().HandleSignals()
	runner.Go(framework.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	runner.Wait()
}
