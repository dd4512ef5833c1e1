package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "reservo.v1.ReservationsService"

type ReservationsServiceServer interface {
	ComputeSlots(context.Context, *ComputeSlotsRequest) (*ComputeSlotsResponse, error)
	Admit(context.Context, *AdmitRequest) (*AdmitResponse, error)
	Transition(context.Context, *TransitionRequest) (*TransitionResponse, error)
	ListReservations(context.Context, *ListReservationsRequest) (*ListReservationsResponse, error)
	UpsertWeeklyWindow(context.Context, *UpsertWeeklyWindowRequest) (*UpsertWeeklyWindowResponse, error)
	SetWeeklyWindowActive(context.Context, *SetWeeklyWindowActiveRequest) (*SetWeeklyWindowActiveResponse, error)
	GetWeeklySchedule(context.Context, *GetWeeklyScheduleRequest) (*GetWeeklyScheduleResponse, error)
}

var ReservationsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("ComputeSlots", ReservationsServiceServer.ComputeSlots),
		unaryMethod("Admit", ReservationsServiceServer.Admit),
		unaryMethod("Transition", ReservationsServiceServer.Transition),
		unaryMethod("ListReservations", ReservationsServiceServer.ListReservations),
		unaryMethod("UpsertWeeklyWindow", ReservationsServiceServer.UpsertWeeklyWindow),
		unaryMethod("SetWeeklyWindowActive", ReservationsServiceServer.SetWeeklyWindowActive),
		unaryMethod("GetWeeklySchedule", ReservationsServiceServer.GetWeeklySchedule),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reservo/v1/reservations",
}

func RegisterReservationsServiceServer(s grpc.ServiceRegistrar, srv ReservationsServiceServer) {
	s.RegisterService(&ReservationsServiceDesc, srv)
}

// FullMethod returns the "/service/method" path used on the wire.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryMethod[Req, Resp any](name string, call func(ReservationsServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(ReservationsServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}
