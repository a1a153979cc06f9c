package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/firmata.go/pkg/firmata"
)

func TestBoardConfig(t *testing.T) {
	conf := &Config{Port: "/dev/ttyACM0", Board: "arduino", Settle: -1}
	bc, err := conf.BoardConfig()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM0", bc.Name)
	require.Equal(t, firmata.DefaultSettleTime, bc.SettleTime)
	require.NotNil(t, bc.Layout)
	require.Equal(t, 20, bc.Layout.PinCount())

	conf = &Config{Port: "ws://esp8266.local:8080/firmata", Settle: -1}
	bc, err = conf.BoardConfig()
	require.NoError(t, err)
	require.Nil(t, bc.Layout)
	require.Zero(t, bc.SettleTime)

	conf.Settle = 500 * time.Millisecond
	bc, err = conf.BoardConfig()
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, bc.SettleTime)

	conf.Board = "teensy"
	_, err = conf.BoardConfig()
	require.Error(t, err)
}

func TestOpenErrors(t *testing.T) {
	_, err := (&Config{}).Open()
	require.Error(t, err)
	_, err = (&Config{Port: "tcp://localhost:3030"}).Open()
	require.Error(t, err)
}

func TestBoardID(t *testing.T) {
	require.Equal(t, "uno", (&Config{ID: "uno"}).BoardID())
}
