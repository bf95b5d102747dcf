package api

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/victornm/quizassign/internal/auth"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
	"github.com/victornm/quizassign/internal/review"
)

// CodecName is the gRPC content subtype used by AssignmentService. Messages
// are plain JSON.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

const assignmentServiceName = "quizassign.v1.AssignmentService"

type GetAssignmentRequest struct {
	AssignmentID string `json:"assignmentId"`
}

type GetReviewRequest struct {
	AssignmentID string `json:"assignmentId"`
}

type AssignmentServiceServer interface {
	IssueAssignments(ctx context.Context, req *IssueAssignmentsRequest) (*IssueAssignmentsResponse, error)
	GetAssignment(ctx context.Context, req *GetAssignmentRequest) (*domain.Assignment, error)
	GetReview(ctx context.Context, req *GetReviewRequest) (*review.Review, error)
}

func RegisterAssignmentServiceServer(s grpc.ServiceRegistrar, srv AssignmentServiceServer) {
	s.RegisterService(&assignmentServiceDesc, srv)
}

var assignmentServiceDesc = grpc.ServiceDesc{
	ServiceName: assignmentServiceName,
	HandlerType: (*AssignmentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "IssueAssignments",
			Handler: unaryHandler("IssueAssignments", func(srv AssignmentServiceServer, ctx context.Context, req *IssueAssignmentsRequest) (any, error) {
				return srv.IssueAssignments(ctx, req)
			}),
		},
		{
			MethodName: "GetAssignment",
			Handler: unaryHandler("GetAssignment", func(srv AssignmentServiceServer, ctx context.Context, req *GetAssignmentRequest) (any, error) {
				return srv.GetAssignment(ctx, req)
			}),
		},
		{
			MethodName: "GetReview",
			Handler: unaryHandler("GetReview", func(srv AssignmentServiceServer, ctx context.Context, req *GetReviewRequest) (any, error) {
				return srv.GetReview(ctx, req)
			}),
		},
	},
	Streams: []grpc.StreamDesc{},
}

func unaryHandler[Req any](method string, call func(AssignmentServiceServer, context.Context, *Req) (any, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + assignmentServiceName + "/" + method

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(AssignmentServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AssignmentServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func caller(ctx context.Context) (domain.Identity, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return domain.Identity{}, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("missing caller identity"))
	}
	return id, nil
}

func (a *API) IssueAssignments(ctx context.Context, req *IssueAssignmentsRequest) (*IssueAssignmentsResponse, error) {
	teacher, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	return a.issue(ctx, teacher, req)
}

func (a *API) GetAssignment(ctx context.Context, req *GetAssignmentRequest) (*domain.Assignment, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	return a.assignments.Get(ctx, id, req.AssignmentID)
}

func (a *API) GetReview(ctx context.Context, req *GetReviewRequest) (*review.Review, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	return a.reviews.Review(ctx, id, req.AssignmentID)
}

// AssignmentServiceClient calls AssignmentService with the JSON codec.
type AssignmentServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAssignmentServiceClient(cc grpc.ClientConnInterface) *AssignmentServiceClient {
	return &AssignmentServiceClient{cc: cc}
}

func (c *AssignmentServiceClient) IssueAssignments(ctx context.Context, req *IssueAssignmentsRequest, opts ...grpc.CallOption) (*IssueAssignmentsResponse, error) {
	out := new(IssueAssignmentsResponse)
	if err := c.invoke(ctx, "IssueAssignments", req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AssignmentServiceClient) GetAssignment(ctx context.Context, req *GetAssignmentRequest, opts ...grpc.CallOption) (*domain.Assignment, error) {
	out := new(domain.Assignment)
	if err := c.invoke(ctx, "GetAssignment", req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AssignmentServiceClient) GetReview(ctx context.Context, req *GetReviewRequest, opts ...grpc.CallOption) (*review.Review, error) {
	out := new(review.Review)
	if err := c.invoke(ctx, "GetReview", req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AssignmentServiceClient) invoke(ctx context.Context, method string, req, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+assignmentServiceName+"/"+method, req, out, opts...)
}
