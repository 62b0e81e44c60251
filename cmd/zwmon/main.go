package main

import (
	"flag"
	"os"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/zwproxy/pkg/api"
	"github.com/robotalks/zwproxy/pkg/api/comm/mqtt"
	"github.com/robotalks/zwproxy/pkg/api/msgs"
	"github.com/robotalks/zwproxy/pkg/cli/sh"
)

var (
	mqttURL = "mqtt://localhost:1883/"
)

func init() {
	if val := os.Getenv("ZWPROXY_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exit(err)
	}
	if err := q.ConnectAndWait(); err != nil {
		glog.Exit(err)
	}

	q.Sub(api.TopicRoot+"/#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/meta") {
			if len(payload) == 0 {
				glog.Infof("%s: gone", topic)
			} else {
				glog.Infof("%s: %s", topic, string(payload))
			}
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			glog.Warningf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.Warningf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		glog.Infof("%s: #%d %s", topic, typed.Sequence, sh.FormatMsg(msg))
	}))
	<-(chan struct{})(nil)
}
