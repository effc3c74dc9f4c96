package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/srand/multinode/pkg/utils"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	administrationServiceName = "multinode.Administration"
	statisticsMethod          = "/multinode.Administration/Statistics"
	rescheduleMethod          = "/multinode.Administration/Reschedule"
)

type AdministrationServer interface {
	Statistics(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reschedule(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

type Administrable interface {
	StatisticsProvider
	Reschedule()
	Stopped() bool
}

type adminService struct {
	dispatcher Administrable
}

func NewAdminService(dispatcher Administrable) *adminService {
	return &adminService{
		dispatcher: dispatcher,
	}
}

func (s *adminService) Statistics(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	data, err := json.Marshal(s.dispatcher.Statistics())
	if err != nil {
		return nil, utils.GrpcError(fmt.Errorf("%w: %v", utils.ErrSerialization, err))
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, utils.GrpcError(fmt.Errorf("%w: %v", utils.ErrSerialization, err))
	}

	result, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, utils.GrpcError(fmt.Errorf("%w: %v", utils.ErrSerialization, err))
	}
	return result, nil
}

func (s *adminService) Reschedule(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if s.dispatcher.Stopped() {
		return nil, utils.GrpcError(utils.ErrShutdown)
	}
	s.dispatcher.Reschedule()
	return &emptypb.Empty{}, nil
}

func statisticsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdministrationServer).Statistics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: statisticsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdministrationServer).Statistics(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func rescheduleHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdministrationServer).Reschedule(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rescheduleMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdministrationServer).Reschedule(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var administrationServiceDesc = grpc.ServiceDesc{
	ServiceName: administrationServiceName,
	HandlerType: (*AdministrationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Statistics", Handler: statisticsHandler},
		{MethodName: "Reschedule", Handler: rescheduleHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "multinode/administration",
}

func RegisterAdministrationServer(s grpc.ServiceRegistrar, srv AdministrationServer) {
	s.RegisterService(&administrationServiceDesc, srv)
}

// Client of the administration service.
type AdministrationClient struct {
	conn grpc.ClientConnInterface
}

func NewAdministrationClient(conn grpc.ClientConnInterface) *AdministrationClient {
	return &AdministrationClient{conn: conn}
}

func (c *AdministrationClient) Statistics(ctx context.Context) (*Statistics, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, statisticsMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}

	data, err := json.Marshal(out.AsMap())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrSerialization, err)
	}

	stats := &Statistics{}
	if err := json.Unmarshal(data, stats); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrParse, err)
	}

	return stats, nil
}

func (c *AdministrationClient) Reschedule(ctx context.Context) error {
	return c.conn.Invoke(ctx, rescheduleMethod, &emptypb.Empty{}, new(emptypb.Empty))
}
