package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/session"
	apiclient "github.com/trezcool/masomo-admin/services/api"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	confirmFunc      = askConfirmation   // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	client    *apiclient.Client
	sess      *session.Session
	logger    core.Logger
	out       io.Writer
	resources map[string]resourceCmd
	timeout   time.Duration
}

func newCommandLine(client *apiclient.Client, assetBase string, logger core.Logger, out io.Writer) *commandLine {
	if logger == nil {
		logger = core.NopLogger{}
	}
	cli := &commandLine{
		client:    client,
		sess:      client.Session(),
		logger:    logger,
		out:       out,
		resources: newResources(client, assetBase, logger),
		timeout:   time.Minute,
	}
	for _, res := range cli.resources {
		cli.sess.OnLogout(res.discard)
	}
	return cli
}

func (cli *commandLine) printUsage() {
	names := cli.resourceNames()
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME|EMAIL                 - start a session (the password is prompted)")
	fmt.Fprintln(cli.out, "  logout                                         - end the session")
	fmt.Fprintln(cli.out, "  whoami                                         - show the logged in user")
	fmt.Fprintln(cli.out, "  list -resource R [-sort F] [-desc] [-q TEXT] [-ci DIGITS] [-module ID] [-role ROLE]")
	fmt.Fprintln(cli.out, "  save -resource R [-id ID] -set field=value ... [-file field=path]")
	fmt.Fprintln(cli.out, "  delete -resource R -id ID [-yes]")
	fmt.Fprintln(cli.out, "  export -resource R -out FILE.xlsx [list flags]")
	fmt.Fprintln(cli.out, "  resetpassword -id USER_ID                      - set a user's password (prompted)")
	fmt.Fprintf(cli.out, "Resources: %s\n", strings.Join(names, ", "))
}

func (cli *commandLine) resourceNames() []string {
	names := make([]string, 0, len(cli.resources))
	for name := range cli.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginUname := loginCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	var listOpts, exportOpts viewOptions
	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)
	listOpts.register(listCmd)

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportOpts.register(exportCmd)
	exportOut := exportCmd.String("out", "", "The .xlsx file to write.")

	var sets, files kvFlag
	saveCmd := flag.NewFlagSet("save", flag.ContinueOnError)
	saveRes := saveCmd.String("resource", "", "The resource to save.")
	saveID := saveCmd.Int("id", 0, "The id of the record to update; a new record is created without it.")
	saveCmd.Var(&sets, "set", "A field=value pair, repeatable.")
	saveCmd.Var(&files, "file", "A field=path pair for file fields (logo, foto), repeatable.")

	deleteCmd := flag.NewFlagSet("delete", flag.ContinueOnError)
	deleteRes := deleteCmd.String("resource", "", "The resource to delete from.")
	deleteID := deleteCmd.Int("id", 0, "The id of the record to delete.")
	deleteYes := deleteCmd.Bool("yes", false, "Do not ask for confirmation.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordID := resetPasswordCmd.Int("id", 0, "The user's id. The new password will be prompted next.")

	ctx, cancel := context.WithTimeout(context.Background(), cli.timeout)
	defer cancel()

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginUname, pwd)
	case "logout":
		return cli.logout()
	case "whoami":
		return cli.whoami()
	case "list":
		if err := listCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.list(ctx, listOpts)
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(ctx, exportOpts, *exportOut)
	case "save":
		if err := saveCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *saveRes == "" || (len(sets) == 0 && len(files) == 0) {
			saveCmd.Usage()
			return errHelp
		}
		return cli.save(ctx, *saveRes, *saveID, sets, files)
	case "delete":
		if err := deleteCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *deleteRes == "" || *deleteID <= 0 {
			deleteCmd.Usage()
			return errHelp
		}
		return cli.delete(ctx, *deleteRes, *deleteID, *deleteYes)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordID <= 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword("Enter new password:")
		if err != nil {
			return err
		}
		confirm, err := cli.readPassword("Confirm new password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordID, pwd, confirm)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword(prompt string) (string, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

func (cli *commandLine) login(ctx context.Context, uname, pwd string) error {
	usr, err := cli.client.Login(ctx, core.CleanString(uname), pwd)
	if err != nil {
		return errors.Wrap(err, "login")
	}
	fmt.Fprintf(cli.out, "Logged in as %s (%s)\n", usr.FullName(), usr.Role)
	if landing, ok := usr.Landing(); ok {
		fmt.Fprintf(cli.out, "Dashboard: %s\n", landing)
	} else {
		cli.logger.Warn(fmt.Sprintf("unknown role %q", usr.Role), usr)
	}
	return nil
}

func (cli *commandLine) logout() error {
	if err := cli.sess.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Logged out")
	return nil
}

func (cli *commandLine) whoami() error {
	usr, ok := cli.sess.User()
	if !ok || !cli.sess.Authenticated() {
		return session.ErrNoSession
	}
	fmt.Fprintf(cli.out, "%s <%s> #%d, %s\n", usr.FullName(), usr.Email, usr.ID, usr.Role)
	return nil
}

// resource looks up name and makes sure someone is logged in.
func (cli *commandLine) resource(name string) (resourceCmd, error) {
	res, ok := cli.resources[name]
	if !ok {
		return nil, errors.Errorf("unknown resource %q (one of %s)", name, strings.Join(cli.resourceNames(), ", "))
	}
	if !cli.sess.Authenticated() {
		return nil, errors.Wrap(session.ErrNoSession, "run `login -username ...` first")
	}
	return res, nil
}

func (cli *commandLine) view(ctx context.Context, opts viewOptions) (table, error) {
	res, err := cli.resource(opts.resource)
	if err != nil {
		return nil, err
	}
	if err := res.load(ctx); err != nil {
		return nil, err
	}
	return res.view(opts)
}

func (cli *commandLine) list(ctx context.Context, opts viewOptions) error {
	if opts.resource == "" {
		return errors.New("-resource is required")
	}
	tbl, err := cli.view(ctx, opts)
	if err != nil {
		return err
	}
	records := tbl.Records()
	tw := tablewriter.NewWriter(cli.out)
	tw.SetHeader(tbl.Headers())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(records)
	tw.Render()
	fmt.Fprintf(cli.out, "%d %s\n", len(records), opts.resource)
	return nil
}

func (cli *commandLine) export(ctx context.Context, opts viewOptions, out string) error {
	if opts.resource == "" {
		return errors.New("-resource is required")
	}
	tbl, err := cli.view(ctx, opts)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "creating %s", out)
	}
	if err := tbl.WriteXLSX(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", out)
	}
	fmt.Fprintf(cli.out, "%d %s exported to %s\n", len(tbl.Records()), opts.resource, out)
	return nil
}

func (cli *commandLine) save(ctx context.Context, name string, id int, sets, files kvFlag) error {
	res, err := cli.resource(name)
	if err != nil {
		return err
	}
	if res.readOnly() {
		return errors.Errorf("%s is read-only", name)
	}
	if err := res.load(ctx); err != nil {
		return err
	}
	fields, err := sets.pairs()
	if err != nil {
		return err
	}
	paths, err := files.pairs()
	if err != nil {
		return err
	}
	savedID, err := res.save(ctx, id, fields, paths)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Saved %s #%d\n", name, savedID)
	return nil
}

func (cli *commandLine) delete(ctx context.Context, name string, id int, yes bool) error {
	res, err := cli.resource(name)
	if err != nil {
		return err
	}
	if res.readOnly() {
		return errors.Errorf("%s is read-only", name)
	}
	confirm := confirmFunc
	if yes {
		confirm = func(string) bool { return true }
	}
	if err := res.load(ctx); err != nil {
		return err
	}
	if err := res.remove(ctx, id, confirm); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Deleted %s #%d\n", name, id)
	return nil
}

// askConfirmation asks a yes/no question on stdin; anything but y/yes is a no.
func askConfirmation(prompt string) bool {
	fmt.Print(prompt + " [y/N]: ")
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "s", "si", "sí":
		return true
	}
	return false
}
