package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// resetPassword sets a user's password through the user edition endpoint.
func (cli *commandLine) resetPassword(ctx context.Context, id int, pwd, confirm string) error {
	users, err := cli.resource("users")
	if err != nil {
		return err
	}
	if err := users.load(ctx); err != nil {
		return err
	}
	if _, err := users.save(ctx, id, map[string]string{"password": pwd, "password_confirm": confirm}, nil); err != nil {
		return errors.Wrap(err, "reset password")
	}
	fmt.Fprintf(cli.out, "Password of user #%d updated\n", id)
	return nil
}
