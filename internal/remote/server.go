package remote

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/funvibe/graphir/internal/ir"
	"github.com/funvibe/graphir/internal/rewrite"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "graphir.Rewriter"

// rewriteMethod is the full method path clients invoke.
const rewriteMethod = "/" + ServiceName + "/Rewrite"

// Server hosts the rewrite service.
type Server struct {
	grpc *grpc.Server
}

// NewServer constructs a server with the rewrite service registered.
func NewServer() *Server {
	s := &Server{grpc: grpc.NewServer()}
	s.grpc.RegisterService(serviceDesc(), s)
	return s
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// ListenAndServe listens on addr and serves until Stop is called.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

func serviceDesc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Rewrite",
				Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					req := new(RewriteRequest)
					if err := dec(req); err != nil {
						return nil, err
					}
					return srv.(*Server).handleRewrite(ctx, req)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "graphir",
	}
}

func (s *Server) handleRewrite(_ context.Context, req *RewriteRequest) (*RewriteResponse, error) {
	bundle, err := ir.DeserializeBundle(req.Bundle)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding bundle: %v", err)
	}
	root, spec, err := rewrite.Rewrite(bundle.Root, bundle.Spec)
	if err != nil {
		return nil, status.Errorf(rewriteCode(err), "rewrite: %v", err)
	}
	out, err := (&ir.Bundle{Root: root, Spec: spec}).Serialize()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding bundle: %v", err)
	}
	return &RewriteResponse{Bundle: out}, nil
}

// rewriteCode maps rewrite failures onto gRPC status codes. Structural
// problems in the input graph are the caller's fault.
func rewriteCode(err error) codes.Code {
	switch {
	case errors.Is(err, rewrite.ErrMalformedNesting),
		errors.Is(err, rewrite.ErrIncompleteScope),
		errors.Is(err, rewrite.ErrUnsupportedOutput),
		errors.Is(err, rewrite.ErrSpecMismatch):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}
