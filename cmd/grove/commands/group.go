package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/wire"
	"grove/internal/store"
)

func createGroupCmd() *cobra.Command {
	var (
		groupID string
		members []string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "create-group",
		Short: "Create a group, adding the owners of the given key packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if groupID == "" {
				groupID = uuid.NewString()
			}
			kps, err := readKeyPackages(members)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			id := domain.GroupIDFromString(groupID)
			res, err := appCtx.Groups.CreateGroup(ctx, passphrase, id, kps)
			if err != nil {
				return err
			}
			tree, err := appCtx.Groups.ExportRatchetTree(ctx, passphrase, id)
			if err != nil {
				return err
			}
			// Nobody but the creator is in the group yet; only Welcomes go out.
			res.Commit = nil
			paths, err := writeCommitOutput(out, res, tree)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Group %s created at epoch %d.\n", groupID, res.Summary.Epoch)
			printPaths(w, paths)
			return nil
		},
	}
	cmd.Flags().StringVar(&groupID, "id", "", "group id (default: a random UUID)")
	cmd.Flags().StringSliceVar(&members, "add", nil, "key package files of the initial members")
	cmd.Flags().StringVar(&out, "out", ".", "directory to write Welcomes and the ratchet tree to")
	return cmd
}

func joinCmd() *cobra.Command {
	var welcomePath, treePath string
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a group from a Welcome and the matching ratchet tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			m, err := readMessage(welcomePath)
			if err != nil {
				return err
			}
			if m.WireFormat != domain.WireFormatWelcome {
				return fmt.Errorf("%s: expected a welcome, got %s", welcomePath, m.WireFormat)
			}
			tree, err := os.ReadFile(treePath)
			if err != nil {
				return err
			}
			sum, err := appCtx.Groups.JoinGroupByWelcome(cmd.Context(), passphrase, m.Welcome, tree)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joined %s at epoch %d as leaf %d.\n", sum.GroupID, sum.Epoch, sum.OwnLeaf)
			return nil
		},
	}
	cmd.Flags().StringVar(&welcomePath, "welcome", "", "welcome message file")
	cmd.Flags().StringVar(&treePath, "tree", treeFile, "ratchet tree file")
	_ = cmd.MarkFlagRequired("welcome")
	return cmd
}

func exportTreeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-tree <group>",
		Short: "Write the group's ratchet tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := appCtx.Groups.ExportRatchetTree(cmd.Context(), passphrase, domain.GroupIDFromString(args[0]))
			if err != nil {
				return err
			}
			if err := store.WriteFile(out, tree, 0o600); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", treeFile, "file to write the tree to")
	return cmd
}

func checkGroupIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-group-id <group>",
		Short: "Print the group id if the group is stored locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appCtx.Groups.CheckGroupID(cmd.Context(), passphrase, domain.GroupIDFromString(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <group>",
		Short: "Print a group's epoch and roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := appCtx.Groups.LoadGroup(cmd.Context(), passphrase, domain.GroupIDFromString(args[0]))
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
}

func addCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "add <group> <key-package-file>",
		Short: "Propose adding the owner of a key package",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kps, err := readKeyPackages(args[1:])
			if err != nil {
				return err
			}
			msg, err := appCtx.Groups.ProposeAdd(cmd.Context(), passphrase, domain.GroupIDFromString(args[0]), kps[0])
			if err != nil {
				return err
			}
			return writeProposal(cmd.OutOrStdout(), out, msg)
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "directory to write the proposal to")
	return cmd
}

func removeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "remove <group> <leaf>",
		Short: "Propose removing the member at a leaf index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			leaf, err := parseLeaf(args[1])
			if err != nil {
				return err
			}
			msg, err := appCtx.Groups.ProposeRemove(cmd.Context(), passphrase, domain.GroupIDFromString(args[0]), leaf)
			if err != nil {
				return err
			}
			return writeProposal(cmd.OutOrStdout(), out, msg)
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "directory to write the proposal to")
	return cmd
}

func updateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "update <group>",
		Short: "Propose a fresh encryption key for your leaf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := appCtx.Groups.ProposeUpdate(cmd.Context(), passphrase, domain.GroupIDFromString(args[0]))
			if err != nil {
				return err
			}
			return writeProposal(cmd.OutOrStdout(), out, msg)
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "directory to write the proposal to")
	return cmd
}

func leaveCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "leave <group>",
		Short: "Ask the group to remove you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := appCtx.Groups.Leave(cmd.Context(), passphrase, domain.GroupIDFromString(args[0]))
			if err != nil {
				return err
			}
			if msg == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "You were the last member; the group is closed.")
				return nil
			}
			return writeProposal(cmd.OutOrStdout(), out, msg)
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "directory to write the proposal to")
	return cmd
}

func commitCmd() *cobra.Command {
	var (
		adds    []string
		removes []uint
		out     string
	)
	cmd := &cobra.Command{
		Use:   "commit <group>",
		Short: "Commit pending proposals plus any given inline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kps, err := readKeyPackages(adds)
			if err != nil {
				return err
			}
			var inline []domain.Proposal
			for _, kp := range kps {
				inline = append(inline, domain.NewAddProposal(kp))
			}
			for _, leaf := range removes {
				inline = append(inline, domain.NewRemoveProposal(domain.LeafIndex(leaf)))
			}

			ctx := cmd.Context()
			id := domain.GroupIDFromString(args[0])
			res, err := appCtx.Groups.Commit(ctx, passphrase, id, inline)
			if err != nil {
				return err
			}
			tree, err := appCtx.Groups.ExportRatchetTree(ctx, passphrase, id)
			if err != nil {
				return err
			}
			paths, err := writeCommitOutput(out, res, tree)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Committed epoch %d.\n", res.Summary.Epoch)
			printPaths(w, paths)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&adds, "add", nil, "key package files to add inline")
	cmd.Flags().UintSliceVar(&removes, "remove", nil, "leaf indexes to remove inline")
	cmd.Flags().StringVar(&out, "out", ".", "directory to write the commit and Welcomes to")
	return cmd
}

func applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <message-file>...",
		Short: "Process received proposals and commits in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs := make([]*domain.Message, 0, len(args))
			for _, p := range args {
				m, err := readMessage(p)
				if err != nil {
					return err
				}
				msgs = append(msgs, m)
			}
			results, err := appCtx.Messages.Process(cmd.Context(), passphrase, msgs)
			w := cmd.OutOrStdout()
			for i, r := range results {
				status := "ok"
				if r.Err != nil {
					status = r.Err.Error()
				}
				fmt.Fprintf(w, "%s: %s %s epoch %d: %s\n", args[i], r.WireFormat, r.GroupID, r.Epoch, status)
			}
			return err
		},
	}
}

func writeProposal(w io.Writer, dir string, msg *domain.ProposalMessage) error {
	path := filepath.Join(dir, fmt.Sprintf("proposal-%d-%d-%s.msg", msg.Epoch, msg.Sender, msg.Proposal.Type))
	if err := writeMessage(path, wire.NewProposalMessage(msg)); err != nil {
		return err
	}
	fmt.Fprintln(w, path)
	return nil
}

func parseLeaf(s string) (domain.LeafIndex, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("leaf index %q: %w", s, err)
	}
	return domain.LeafIndex(n), nil
}

func printPaths(w io.Writer, paths []string) {
	for _, p := range paths {
		fmt.Fprintln(w, "  "+p)
	}
}

func printSummary(w io.Writer, sum domain.GroupSummary) {
	fmt.Fprintf(w, "Group:  %s\nEpoch:  %d\nStatus: %s\nSuite:  0x%04x\nLeaf:   %d\nAuth:   %s\n",
		sum.GroupID, sum.Epoch, sum.Status, uint16(sum.CipherSuite), sum.OwnLeaf, crypto.B64(sum.EpochAuthenticator))
	fmt.Fprintln(w, "Members:")
	for _, m := range sum.Members {
		cred := m.LeafNode.Credential
		fmt.Fprintf(w, "  %d  %s  %s\n", m.Index, cred.Identity, crypto.Fingerprint(cred.SignatureKey[:]))
	}
}
