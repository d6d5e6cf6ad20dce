// Command admin is the school administration console: it logs into the REST backend and
// lists, edits, deletes and exports its records.
package main

import (
	"fmt"
	"os"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/session"
	apiclient "github.com/trezcool/masomo-admin/services/api"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.New("ADMIN", os.Stderr, conf)

	sess := session.New(conf.API.AuthScheme, session.NewFileStore(conf.SessionFile))
	if err := sess.Restore(); err != nil {
		logger.Warn(err.Error())
	}
	client := apiclient.New(conf, sess, logger)

	cli := newCommandLine(client, conf.AssetBaseURL(), logger, os.Stdout)
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			usr, _ := sess.User()
			logger.Debug(err.Error(), usr)
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", core.Message(err))
		}
		os.Exit(1)
	}
}
